package inmemdb

import (
	"testing"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database/storetest"
)

func TestDB(t *testing.T) {
	storetest.Run(t, func(t *testing.T) database.Store { return Open() })
}
