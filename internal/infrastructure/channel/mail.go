package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"github.com/kirillkom/docflow/internal/core/ports"
)

// MailConfig holds IMAP connection settings for the mail intake channel.
type MailConfig struct {
	Address      string
	Username     string
	Password     string
	Mailbox      string
	PollInterval time.Duration
	LedgerPath   string
}

// MailChannel polls an IMAP mailbox for unseen messages. The message body is
// staged as a text file and every attachment is staged separately, each with
// the sender, subject and date as intake metadata. Processed message UIDs go
// into a ledger file so a re-flagged message is never ingested twice.
type MailChannel struct {
	cfg      MailConfig
	ingestor ports.DocumentIngestor
	logger   *slog.Logger

	processed map[uint32]bool
}

func NewMailChannel(cfg MailConfig, ingestor ports.DocumentIngestor, logger *slog.Logger) (*MailChannel, error) {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	mc := &MailChannel{
		cfg:      cfg,
		ingestor: ingestor,
		logger:   logger,
	}
	if err := mc.loadLedger(); err != nil {
		return nil, err
	}
	return mc, nil
}

func (m *MailChannel) Name() string { return ChannelEmail }

func (m *MailChannel) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	if err := m.poll(ctx); err != nil {
		m.logger.Error("mail_poll_failed", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := m.poll(ctx); err != nil {
				m.logger.Error("mail_poll_failed", "error", err)
			}
		}
	}
}

func (m *MailChannel) poll(ctx context.Context) error {
	c, err := client.DialTLS(m.cfg.Address, nil)
	if err != nil {
		return fmt.Errorf("dial imap: %w", err)
	}
	defer c.Logout()

	if err := c.Login(m.cfg.Username, m.cfg.Password); err != nil {
		return fmt.Errorf("imap login: %w", err)
	}
	if _, err := c.Select(m.cfg.Mailbox, false); err != nil {
		return fmt.Errorf("select mailbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		return fmt.Errorf("search unseen: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchUid}

	messages := make(chan *imap.Message, 10)
	fetchErr := make(chan error, 1)
	go func() {
		fetchErr <- c.Fetch(seqset, items, messages)
	}()

	m.consume(ctx, messages, section)
	if err := <-fetchErr; err != nil {
		return fmt.Errorf("fetch messages: %w", err)
	}
	return nil
}

// consume drains the fetch channel to completion. The fetch goroutine blocks
// sending into the channel, so cancellation only skips ingestion of the
// remaining messages; stopping the drain early would leave Fetch stuck and
// the connection leaked.
func (m *MailChannel) consume(ctx context.Context, messages <-chan *imap.Message, section *imap.BodySectionName) {
	for msg := range messages {
		if ctx.Err() != nil {
			continue
		}
		if m.processed[msg.Uid] {
			continue
		}
		if err := m.ingestMessage(ctx, msg, section); err != nil {
			m.logger.Error("mail_ingest_failed", "uid", msg.Uid, "error", err)
			continue
		}
		if err := m.markProcessed(msg.Uid); err != nil {
			m.logger.Error("mail_ledger_write_failed", "uid", msg.Uid, "error", err)
		}
	}
}

func (m *MailChannel) ingestMessage(ctx context.Context, msg *imap.Message, section *imap.BodySectionName) error {
	body := msg.GetBody(section)
	if body == nil {
		return fmt.Errorf("message %d has no body section", msg.Uid)
	}

	mr, err := mail.CreateReader(body)
	if err != nil {
		return fmt.Errorf("parse message: %w", err)
	}

	meta := map[string]string{"message_uid": strconv.FormatUint(uint64(msg.Uid), 10)}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		meta["sender"] = from[0].Address
	}
	subject, _ := mr.Header.Subject()
	if subject != "" {
		meta["subject"] = subject
	}
	if date, err := mr.Header.Date(); err == nil {
		meta["date"] = date.Format(time.RFC3339)
	}

	var inlineText strings.Builder
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read message part: %w", err)
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			if ct == "text/plain" || ct == "" {
				if _, err := io.Copy(&inlineText, part.Body); err != nil {
					return fmt.Errorf("read inline body: %w", err)
				}
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			if filename == "" {
				filename = fmt.Sprintf("attachment_%d.bin", msg.Uid)
			}
			if _, err := m.ingestor.Upload(ctx, filename, m.Name(), meta, part.Body); err != nil {
				return fmt.Errorf("ingest attachment %s: %w", filename, err)
			}
			m.logger.Info("mail_attachment_ingested", "uid", msg.Uid, "filename", filename)
		}
	}

	if text := strings.TrimSpace(inlineText.String()); text != "" {
		filename := fmt.Sprintf("email_%d.txt", msg.Uid)
		if _, err := m.ingestor.Upload(ctx, filename, m.Name(), meta, strings.NewReader(text)); err != nil {
			return fmt.Errorf("ingest mail body: %w", err)
		}
		m.logger.Info("mail_body_ingested", "uid", msg.Uid)
	}
	return nil
}

func (m *MailChannel) loadLedger() error {
	m.processed = make(map[uint32]bool)
	if m.cfg.LedgerPath == "" {
		return nil
	}
	f, err := os.Open(m.cfg.LedgerPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open mail ledger: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		uid, err := strconv.ParseUint(strings.TrimSpace(scanner.Text()), 10, 32)
		if err != nil {
			continue
		}
		m.processed[uint32(uid)] = true
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read mail ledger: %w", err)
	}
	return nil
}

func (m *MailChannel) markProcessed(uid uint32) error {
	m.processed[uid] = true
	if m.cfg.LedgerPath == "" {
		return nil
	}
	f, err := os.OpenFile(m.cfg.LedgerPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open mail ledger: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d\n", uid); err != nil {
		return fmt.Errorf("append mail ledger: %w", err)
	}
	return nil
}
