// Package boltdb implements the record store on an embedded bbolt file. Every operation runs in a
// single bbolt transaction, so the board cascade is atomic.
package boltdb

import (
	"time"

	"github.com/bytedance/sonic"
	bolt "go.etcd.io/bbolt"
)

var (
	boardsBucket     = []byte("boards")
	tasksBucket      = []byte("tasks")
	boardTasksBucket = []byte("board_tasks")

	indexMarker = []byte{1}
)

// Buckets lists the top-level buckets the repositories expect to exist.
var Buckets = [][]byte{boardsBucket, tasksBucket, boardTasksBucket}

var codec = sonic.ConfigStd

var now = func() time.Time { return time.Now().UTC() }

func getJSON(b *bolt.Bucket, key string, v interface{}) (bool, error) {
	raw := b.Get([]byte(key))
	if raw == nil {
		return false, nil
	}
	return true, codec.Unmarshal(raw, v)
}

func putJSON(b *bolt.Bucket, key string, v interface{}) error {
	payload, err := codec.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), payload)
}
