// Command phantom hosts the phantom tool over a dataset directory, or calls
// a running instance when -list is given.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	toolapi "github.com/mrxlab/go-toolapi"
	"github.com/mrxlab/go-toolapi/servers/phantom"
)

func main() {
	listen := flag.String("listen", ":8081", "address to serve the tool on")
	dataDir := flag.String("data", ".", "directory holding phantom datasets")
	list := flag.String("list", "", "list datasets matching this pattern at -addr instead of serving")
	addr := flag.String("addr", "ws://localhost:8081/tool", "tool address for -list")
	flag.Parse()

	if *list != "" {
		if err := listDatasets(*addr, *list); err != nil {
			log.Fatal(err)
		}
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	srv := toolapi.NewServer(phantom.NewServer(*dataDir).Tool,
		toolapi.WithLogger(logger),
	)

	logger.Info("serving phantom tool", "addr", *listen, "data", *dataDir)
	if err := srv.Serve(*listen); err != nil {
		log.Fatal(err)
	}
}

func listDatasets(addr, pattern string) error {
	output, err := toolapi.Call(addr, toolapi.ValueDict{
		"op":      toolapi.Str("list"),
		"pattern": toolapi.Str(pattern),
	}, nil)
	if err != nil {
		return err
	}
	datasets, err := toolapi.Pop[toolapi.TypedList](output, "datasets")
	if err != nil {
		return err
	}
	for i := 0; i < datasets.Len(); i++ {
		fmt.Println(datasets.At(i).(toolapi.Str))
	}
	return nil
}
