package toolapi_test

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	toolapi "github.com/mrxlab/go-toolapi"
)

// startTool hosts the given tool on a test server and returns its ws address.
func startTool(t *testing.T, tool toolapi.Tool) string {
	t.Helper()
	srv := toolapi.NewServer(tool)
	server := httptest.NewServer(srv.HandleTool())
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestCallRunsToolToCompletion(t *testing.T) {
	addr := startTool(t, func(input toolapi.ValueDict, out *toolapi.Sender) (toolapi.ValueDict, error) {
		n, err := toolapi.Pop[toolapi.Int](input, "n")
		if err != nil {
			return nil, err
		}
		if err := out.Send("got it"); err != nil {
			return nil, err
		}
		return toolapi.ValueDict{"doubled": n * 2}, nil
	})

	var messages []string
	output, err := toolapi.Call(addr, toolapi.ValueDict{"n": toolapi.Int(21)}, func(msg string) bool {
		messages = append(messages, msg)
		return true
	})
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if got := output["doubled"]; got != toolapi.Int(42) {
		t.Errorf("got %v, want 42", got)
	}
	if len(messages) != 1 || messages[0] != "got it" {
		t.Errorf("got messages %q, want exactly one %q", messages, "got it")
	}
}

func TestCallPreservesMessageOrder(t *testing.T) {
	const n = 50
	addr := startTool(t, func(input toolapi.ValueDict, out *toolapi.Sender) (toolapi.ValueDict, error) {
		for i := 0; i < n; i++ {
			if err := out.Send(fmt.Sprintf("step %d", i)); err != nil {
				return nil, err
			}
		}
		return toolapi.ValueDict{}, nil
	})

	var messages []string
	_, err := toolapi.Call(addr, toolapi.ValueDict{}, func(msg string) bool {
		messages = append(messages, msg)
		return true
	})
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if len(messages) != n {
		t.Fatalf("got %d messages, want %d", len(messages), n)
	}
	for i, msg := range messages {
		if want := fmt.Sprintf("step %d", i); msg != want {
			t.Fatalf("message %d out of order: got %q, want %q", i, msg, want)
		}
	}
}

func TestCallSurfacesToolFailure(t *testing.T) {
	addr := startTool(t, func(input toolapi.ValueDict, out *toolapi.Sender) (toolapi.ValueDict, error) {
		return nil, errors.New("boom")
	})

	_, err := toolapi.Call(addr, toolapi.ValueDict{}, nil)
	var callErr *toolapi.ToolCallError
	if !errors.As(err, &callErr) || callErr.Kind != toolapi.CallToolFailed {
		t.Fatalf("got %v, want a tool failure", err)
	}
	var toolErr *toolapi.ToolError
	if !errors.As(callErr.Err, &toolErr) || toolErr.Message != "boom" {
		t.Errorf("got %v, want the tool's own message", callErr.Err)
	}
	if toolErr.Aborted != 0 {
		t.Errorf("a plain failure must not be marked aborted, got %s", toolErr.Aborted)
	}
}

func TestCallAbortStopsTheTool(t *testing.T) {
	sent := make(chan int, 1)
	reasons := make(chan error, 1)
	addr := startTool(t, func(input toolapi.ValueDict, out *toolapi.Sender) (toolapi.ValueDict, error) {
		i := 0
		var err error
		for ; i < 1000; i++ {
			if err = out.Send(fmt.Sprintf("msg %d", i)); err != nil {
				break
			}
			// Slow the stream enough for the abort to arrive mid-run.
			time.Sleep(time.Millisecond)
		}
		sent <- i
		reasons <- err
		return nil, err
	})

	seen := 0
	_, err := toolapi.Call(addr, toolapi.ValueDict{}, func(msg string) bool {
		seen++
		return seen < 3
	})
	var callErr *toolapi.ToolCallError
	if !errors.As(err, &callErr) || callErr.Kind != toolapi.CallAborted {
		t.Fatalf("got %v, want an aborted call", err)
	}
	if seen != 3 {
		t.Errorf("callback ran %d times, want 3", seen)
	}

	select {
	case n := <-sent:
		if n >= 1000 {
			t.Errorf("tool ran to completion despite the abort")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tool never observed the abort")
	}
	toolErr := <-reasons
	var abortErr *toolapi.AbortError
	if !errors.As(toolErr, &abortErr) {
		t.Fatalf("tool got %v, want an abort", toolErr)
	}
	if abortErr.Reason != toolapi.AbortRequestedByClient && abortErr.Reason != toolapi.AbortConnectionClosed {
		t.Errorf("got reason %s, want a client-initiated one", abortErr.Reason)
	}
}

func TestCallDisconnectAbortsTheTool(t *testing.T) {
	reasons := make(chan error, 1)
	addr := startTool(t, func(input toolapi.ValueDict, out *toolapi.Sender) (toolapi.ValueDict, error) {
		var err error
		for err == nil {
			err = out.Send("still here")
			time.Sleep(time.Millisecond)
		}
		reasons <- err
		return nil, err
	})

	// Dropping the connection mid-run must read as an abort to the tool.
	_, err := toolapi.Call(addr, toolapi.ValueDict{}, func(msg string) bool {
		return false
	})
	var callErr *toolapi.ToolCallError
	if !errors.As(err, &callErr) || callErr.Kind != toolapi.CallAborted {
		t.Fatalf("got %v, want an aborted call", err)
	}

	select {
	case toolErr := <-reasons:
		var abortErr *toolapi.AbortError
		if !errors.As(toolErr, &abortErr) {
			t.Fatalf("tool got %v, want an abort", toolErr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tool never observed the disconnect")
	}
}

func TestCallReportsCrashAsNoResult(t *testing.T) {
	addr := startTool(t, func(input toolapi.ValueDict, out *toolapi.Sender) (toolapi.ValueDict, error) {
		panic("tool bug")
	})

	_, err := toolapi.Call(addr, toolapi.ValueDict{}, nil)
	var callErr *toolapi.ToolCallError
	if !errors.As(err, &callErr) || callErr.Kind != toolapi.CallNoResult {
		t.Fatalf("got %v, want no result", err)
	}
}

func TestCallConnectionRefused(t *testing.T) {
	_, err := toolapi.Call("ws://127.0.0.1:1/tool", toolapi.ValueDict{}, nil)
	var callErr *toolapi.ToolCallError
	if !errors.As(err, &callErr) || callErr.Kind != toolapi.CallConnection {
		t.Fatalf("got %v, want a connection error", err)
	}
}

func TestServeIndexPage(t *testing.T) {
	srv := toolapi.NewServer(
		func(input toolapi.ValueDict, out *toolapi.Sender) (toolapi.ValueDict, error) {
			return toolapi.ValueDict{}, nil
		},
		toolapi.WithIndexHTML("<html><body>tool server</body></html>"),
	)
	server := httptest.NewServer(srv.HandleIndex())
	defer server.Close()

	resp, err := server.Client().Get(server.URL)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("got status %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("got content type %q, want text/html", ct)
	}
}
