package memory

import (
	"github.com/ValentinKolb/bKV/lib/db"
	dbtesting "github.com/ValentinKolb/bKV/lib/db/testing"
	"testing"
)

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "MemoryDB", func() db.KVDB {
		return NewMemoryDB()
	})
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "MemoryDB", func() db.KVDB {
		return NewMemoryDB()
	})
}
