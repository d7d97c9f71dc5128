package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// ulid.Monotonic: ID внутри одной миллисекунды остаются лексикографически возрастающими
	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New возвращает ULID-строку. Используется как orderLinkId — биржа требует уникальность,
// сортируемость по времени удобна при разборе журнала.
func New() string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), mono)
	if err != nil {
		panic(err)
	}
	return id.String()
}
