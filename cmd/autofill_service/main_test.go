package main

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestShutdownGracefullyWaitsForInFlightRequests(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			<-release
			fmt.Fprint(w, "done")
		}),
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(lis) }()

	var wg sync.WaitGroup
	wg.Add(1)
	var body string
	go func() {
		defer wg.Done()
		resp, err := http.Get("http://" + lis.Addr().String() + "/")
		if err != nil {
			t.Errorf("request failed: %v", err)
			return
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
	}()

	<-started
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	if err := shutdownGracefully(srv, 5*time.Second); err != nil {
		t.Fatalf("shutdownGracefully: %v", err)
	}

	wg.Wait()
	if body != "done" {
		t.Errorf("in-flight response = %q, want done", body)
	}
	if err := <-serveErr; err != http.ErrServerClosed {
		t.Errorf("Serve returned %v, want http.ErrServerClosed", err)
	}
}

func TestShutdownGracefullyTimesOut(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	defer close(block)

	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			<-block
		}),
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve(lis)

	go http.Get("http://" + lis.Addr().String() + "/")
	<-started

	if err := shutdownGracefully(srv, 20*time.Millisecond); err == nil {
		t.Error("expected a deadline error when a request outlives the timeout")
	}
}
