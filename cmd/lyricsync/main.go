package main

import (
	"context"

	"lyricsync/cmd/lyricsync/commands"
	"lyricsync/lib/osutil"
)

func main() {
	ctx, stop := osutil.SignalContext(context.Background())
	defer stop()
	commands.ExecuteContext(ctx)
}
