package utils

import (
	"encoding/binary"
	"math"
)

func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}

	return v
}

func Int32ToBytes(num int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(num)) //nolint:gosec
	return b
}

func BytesToInt32(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b)) //nolint:gosec
}

func Float32ToBytes(num float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(num))
	return b
}

func BytesToFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
