package channel

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
)

func newTestMailChannel(t *testing.T, ingestor *ingestorFake) *MailChannel {
	t.Helper()
	mc, err := NewMailChannel(MailConfig{Address: "imap.example.com:993"}, ingestor, testLogger())
	if err != nil {
		t.Fatalf("NewMailChannel() error = %v", err)
	}
	return mc
}

func TestMailConsumeDrainsAfterCancel(t *testing.T) {
	ingestor := &ingestorFake{}
	mc := newTestMailChannel(t, ingestor)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	messages := make(chan *imap.Message, 2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for uid := uint32(1); uid <= 25; uid++ {
			messages <- &imap.Message{Uid: uid}
		}
		close(messages)
	}()

	mc.consume(ctx, messages, &imap.BodySectionName{})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer still blocked sending into the fetch channel")
	}
	if len(ingestor.uploads) != 0 {
		t.Fatalf("no message should be ingested after cancellation, got %d", len(ingestor.uploads))
	}
}

func TestMailConsumeIngestsBodyAndSkipsLedgered(t *testing.T) {
	ingestor := &ingestorFake{}
	mc := newTestMailChannel(t, ingestor)
	mc.processed[4] = true

	raw := strings.Join([]string{
		"From: stores@example.com",
		"Subject: Delivery note 118",
		"Date: Mon, 10 Aug 2026 09:30:00 +0000",
		"Content-Type: text/plain",
		"",
		"Consignment received at the central depot.",
	}, "\r\n")

	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, 2)
	messages <- &imap.Message{Uid: 4}
	messages <- &imap.Message{
		Uid:  7,
		Body: map[*imap.BodySectionName]imap.Literal{section: bytes.NewBufferString(raw)},
	}
	close(messages)

	mc.consume(context.Background(), messages, section)

	if len(ingestor.uploads) != 1 {
		t.Fatalf("expected one staged mail body, got %d", len(ingestor.uploads))
	}
	up := ingestor.uploads[0]
	if up.filename != "email_7.txt" || up.channel != ChannelEmail {
		t.Fatalf("unexpected upload %+v", up)
	}
	if up.body != "Consignment received at the central depot." {
		t.Fatalf("body altered: %q", up.body)
	}
	if up.metadata["sender"] != "stores@example.com" || up.metadata["subject"] != "Delivery note 118" {
		t.Fatalf("missing message metadata: %v", up.metadata)
	}
	if !mc.processed[7] {
		t.Fatal("ingested message should be recorded in the ledger")
	}
}
