package serializer

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/bKV/rpc/common"
)

// benchmarkMessages returns messages shaped like the traffic of a debounced store
func benchmarkMessages() map[string]common.Message {
	return map[string]common.Message{
		"Empty":          {MsgType: common.MsgTSuccess},
		"GetItemRequest": *common.NewGetItemRequest("toonnotes-notes"),
		"SetItemSmall":   *common.NewSetItemRequest("toonnotes-labels", []byte(`{"state":{"labels":[]},"version":1}`)),
		// a serialized collection of notes
		"SetItemDocument": *common.NewSetItemRequest("toonnotes-notes",
			bytes.Repeat([]byte(`{"id":"n","title":"Groceries","content":"milk, eggs, bread"},`), 1000)),
		"FlushResponse": *common.NewFlushResponse(2, []string{"toonnotes-notes"}),
	}
}

func BenchmarkSerialize(b *testing.B) {
	for sName, factory := range testSerializers {
		s := factory()
		for mName, msg := range benchmarkMessages() {
			b.Run(sName+"/"+mName, func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					if _, err := s.Serialize(msg); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkDeserialize(b *testing.B) {
	for sName, factory := range testSerializers {
		s := factory()
		for mName, msg := range benchmarkMessages() {
			data, err := s.Serialize(msg)
			if err != nil {
				b.Fatal(err)
			}
			b.Run(sName+"/"+mName, func(b *testing.B) {
				b.ReportAllocs()
				b.SetBytes(int64(len(data)))
				var out common.Message
				for i := 0; i < b.N; i++ {
					if err := s.Deserialize(data, &out); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
