package main

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	slurmaddons "github.com/patirot/ud-slurm-addons"
	"nhooyr.io/websocket"
)

type closeCh chan struct{}

// summaryPubSub fans each new snapshot out to the open websockets.
type summaryPubSub struct {
	sync.RWMutex
	listeners map[chan<- *snapshot]closeCh
}

func newSummaryPubSub() *summaryPubSub {
	return &summaryPubSub{
		listeners: make(map[chan<- *snapshot]closeCh),
	}
}

func (ps *summaryPubSub) AddListener(ch chan<- *snapshot) {
	ps.Lock()
	defer ps.Unlock()
	ps.listeners[ch] = make(closeCh)
}

func (ps *summaryPubSub) RemoveListener(ch chan<- *snapshot) {
	ps.Lock()
	defer ps.Unlock()

	quit, ok := ps.listeners[ch]
	if !ok {
		// Already unsubscribed?
		return
	}
	close(quit)
	delete(ps.listeners, ch)
	close(ch)
}

func (ps *summaryPubSub) Publish(s *snapshot) {
	ps.RLock()
	defer ps.RUnlock()
	slog.Debug("will send snapshot to listeners", "nChs", len(ps.listeners))
	for ch, quit := range ps.listeners {
		go func(ch chan<- *snapshot, quit closeCh) {
			// Wait for either the message to be received
			// or the channel to have been unsubscribed
			// (through closing quit).
			select {
			case <-quit:
			case ch <- s:
			}
		}(ch, quit)
	}
}

func (a *app) sendSummary(ctx context.Context, c *websocket.Conn, s *snapshot) error {
	msg := new(bytes.Buffer)
	err := summaryViewHTML.ExecuteTemplate(msg, "summary-table", s)
	if err != nil {
		return err
	}
	return c.Write(ctx, websocket.MessageText, msg.Bytes())
}

func (a *app) summaryWSHandler(w http.ResponseWriter, req *http.Request) {
	c, err := websocket.Accept(w, req, &websocket.AcceptOptions{})
	if err != nil {
		slog.Error("failed to accept ws connection", "err", err)
		return
	}
	defer c.CloseNow() // nolint: errcheck

	ctx, cancel := context.WithTimeout(req.Context(), time.Minute*10)
	defer cancel()

	ctx = c.CloseRead(ctx)

	ch := make(chan *snapshot)
	a.AddListener(ch)
	defer a.RemoveListener(ch)

	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "")
			return
		case s := <-ch:
			err = a.sendSummary(ctx, c, s)
			if err != nil {
				slog.Error("failed to send snapshot to ws", "err", err)
				return
			}
		}
	}
}

func (a *app) summaryIndexHandler(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	a.mu.RLock()
	s := a.current
	a.mu.RUnlock()

	err := summaryViewHTML.Execute(w, struct {
		ClusterName string
		Snapshot    *snapshot
	}{
		ClusterName: a.clusterName,
		Snapshot:    s,
	})
	if err != nil {
		slog.Error("failed to render summary template", "err", err)
		http.Error(w, "failed to render summary template", http.StatusInternalServerError)
		return
	}
}

func getHostname() (string, error) {
	cmd := exec.Command("/bin/hostname", "-f")
	var out bytes.Buffer
	cmd.Stdout = &out
	err := cmd.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

func (a *app) startServer() {
	hostname, err := getHostname()
	if err != nil {
		slog.Error("failed to get hostname", "err", err)
		os.Exit(1)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%v", *httpServerPort))
	if err != nil {
		slog.Error("failed to open http server", "err", err)
		os.Exit(1)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	http.HandleFunc("/", a.summaryIndexHandler)
	http.HandleFunc("/ws", a.summaryWSHandler)

	go func() {
		fmt.Printf("\nStarted qtop on port %v. Go to: \nhttp://%v:%v/ \n\n", port, hostname, port)
		err = http.Serve(ln, a.logRequests(http.DefaultServeMux))

		slog.Debug("server exit", "err", err)
	}()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	stopReq := make(chan os.Signal, 1)
	signal.Notify(stopReq, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for {
		select {
		case <-stopReq:
			return
		case <-ticker.C:
			if err := a.refresh(); err != nil {
				slog.Error("failed to poll the queue", "err", err)
			}
		}
	}
}

func (a *app) logRequests(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		realIP := r.Header.Get("X-Real-Ip")
		slog.Debug("request", "method", r.Method, "url", r.URL, "remoteAddr", r.RemoteAddr, "realIP", realIP)
		handler.ServeHTTP(w, r)
	})
}

//go:embed summary_view.tmpl.html
var summaryViewHTMLString string
var summaryViewHTML = template.Must(
	template.New("summary-index").Funcs(template.FuncMap{
		"mem": slurmaddons.FormatMemoryMB,
	}).Parse(summaryViewHTMLString))
