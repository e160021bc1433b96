package game

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"

	"github.com/google/uuid"
)

func GenID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("Failed to generate UUID: " + err.Error())
	}

	return id.String()
}

// ShortID is the tail of a v7 id; the head is a timestamp and would collide
// for rooms created in the same millisecond.
func ShortID() string {
	id := GenID()
	return id[len(id)-8:]
}

// NewToken returns a session secret. Unlike GenID it is a random v4 id with
// no timestamp part.
func NewToken() string {
	return uuid.NewString()
}

func randomSeed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("Failed to read random seed: " + err.Error())
	}

	return binary.LittleEndian.Uint64(buf[:])
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("Failed to marshal: " + err.Error())
	}

	return data
}
