// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/inertial_orientation/internal/config"
	"github.com/relabs-tech/inertial_orientation/internal/orientation"
)

const wsWriteTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // renderers are served from other local origins
	},
}

// frameStore keeps the latest orientation frame and fans it out to
// websocket subscribers.
type frameStore struct {
	mu   sync.RWMutex
	last []byte
	have bool
	subs map[chan []byte]struct{}
}

func newFrameStore() *frameStore {
	return &frameStore{subs: make(map[chan []byte]struct{})}
}

// update stores payload if it decodes as a Frame and pushes it to every
// subscriber. Slow subscribers miss frames rather than block.
func (s *frameStore) update(payload []byte) error {
	var f orientation.Frame
	if err := json.Unmarshal(payload, &f); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = payload
	s.have = true
	for ch := range s.subs {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (s *frameStore) latest() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.have
}

func (s *frameStore) subscribe() chan []byte {
	ch := make(chan []byte, 4)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *frameStore) unsubscribe(ch chan []byte) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

// handleOrientation serves the latest frame as JSON.
func (s *frameStore) handleOrientation(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(payload); err != nil {
		log.Printf("web: write error: %v", err)
	}
}

// handleWS streams every new frame to a websocket client, starting with the
// latest one.
func (s *frameStore) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	// The client never sends anything we need; reading detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: websocket error: %v", err)
				}
				return
			}
		}
	}()

	if payload, ok := s.latest(); ok {
		if err := writeFrame(conn, payload); err != nil {
			return
		}
	}

	for {
		select {
		case <-closed:
			return
		case payload := <-ch:
			if err := writeFrame(conn, payload); err != nil {
				log.Printf("web: websocket write error: %v", err)
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, payload []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// screenOrientationHandler forwards a renderer's orientationchange to the
// producer over MQTT.
func screenOrientationHandler(pub publisher, topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var ev orientation.ScreenOrientationEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, fmt.Sprintf("invalid screen orientation: %v", err), http.StatusBadRequest)
			return
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := pub.Publish(topic, payload); err != nil {
			log.Printf("web: MQTT publish error (%s): %v", topic, err)
			http.Error(w, "publish failed", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func newWebMux(store *frameStore, pub publisher, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orientation", store.handleOrientation)
	mux.HandleFunc("/ws/orientation", store.handleWS)
	if cfg.TopicScreenOrientation != "" {
		mux.Handle("/api/screen_orientation", screenOrientationHandler(pub, cfg.TopicScreenOrientation))
	}
	if cfg.WebStaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.WebStaticDir)))
	}
	return mux
}

// RunWeb subscribes to orientation frames and serves them over HTTP and
// websocket.
func RunWeb(cfg *config.Config) error {
	store := newFrameStore()

	client, err := connectMQTT(cfg.MQTTBroker, clientID(cfg.MQTTClientIDWeb, "web"))
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	err = subscribe(client, cfg.TopicOrientation, func(_ mqtt.Client, msg mqtt.Message) {
		if err := store.update(msg.Payload()); err != nil {
			log.Printf("MQTT payload unmarshal error: %v", err)
		}
	})
	if err != nil {
		return err
	}

	mux := newWebMux(store, mqttPublisher{client: client}, cfg)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
