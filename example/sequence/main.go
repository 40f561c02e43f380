// Command sequence hosts the block-sequence conversion tool, or calls it
// when -call is given.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	toolapi "github.com/mrxlab/go-toolapi"
	"github.com/mrxlab/go-toolapi/servers/sequence"
)

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>sequence tool</title></head>
<body>
<p>Connect a toolapi client to <code>/tool</code> to convert block sequences
into event streams.</p>
</body>
</html>`

func main() {
	listen := flag.String("listen", ":8080", "address to serve the tool on")
	call := flag.String("call", "", "call the tool at this ws:// address instead of serving")
	flag.Parse()

	if *call != "" {
		if err := runClient(*call); err != nil {
			log.Fatal(err)
		}
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	srv := toolapi.NewServer(sequence.Tool,
		toolapi.WithLogger(logger),
		toolapi.WithIndexHTML(indexHTML),
	)

	logger.Info("serving sequence tool", "addr", *listen)
	if err := srv.Serve(*listen); err != nil {
		log.Fatal(err)
	}
}
