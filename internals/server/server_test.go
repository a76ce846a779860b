package server

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"healthwatch/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServerServesAndShutsDown(t *testing.T) {
	addr := freeAddr(t)
	srv := New(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), logger.Nop())
	errCh := srv.Start()

	var resp *http.Response
	require.Eventually(t, func() bool {
		var err error
		resp, err = http.Get("http://" + addr + "/")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	require.NoError(t, srv.Shutdown(context.Background()))
	_, open := <-errCh
	assert.False(t, open, "clean shutdown reports no error")
}

func TestServerReportsListenFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	srv := New(l.Addr().String(), http.NotFoundHandler(), logger.Nop())

	select {
	case err := <-srv.Start():
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a listen error")
	}
}

func TestServerShutdownFinishesInFlightAndRefusesNew(t *testing.T) {
	addr := freeAddr(t)
	started := make(chan struct{})
	release := make(chan struct{})
	srv := New(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/checks/run" {
			close(started)
			<-release
		}
		w.WriteHeader(http.StatusOK)
	}), logger.Nop())
	srv.Start()

	client := &http.Client{
		Timeout:   2 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + addr + "/status")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	inFlight := make(chan int, 1)
	go func() {
		resp, err := client.Post("http://"+addr+"/checks/run", "", nil)
		if err != nil {
			inFlight <- 0
			return
		}
		resp.Body.Close()
		inFlight <- resp.StatusCode
	}()
	<-started

	shutdownErr := make(chan error, 1)
	go func() { shutdownErr <- srv.Shutdown(context.Background()) }()

	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + addr + "/status")
		if err == nil {
			resp.Body.Close()
		}
		return err != nil
	}, 2*time.Second, 10*time.Millisecond, "new connections are refused once shutdown begins")

	close(release)
	assert.Equal(t, http.StatusOK, <-inFlight)
	assert.NoError(t, <-shutdownErr)
}
