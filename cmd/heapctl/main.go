package main

import (
	"context"

	"github.com/Blackdeer1524/HeapDB/cmd/heapctl/app"
)

func main() {
	app.MustExecute(context.Background())
}
