package worker

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"pulsemail/config"
	"pulsemail/utils"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// BounceMailboxWorker polls a return-path mailbox for delivery status
// notifications (DSNs) and feeds them into the bounce pipeline. Providers
// without webhook support still generate DSN mail, so this closes the gap.
type BounceMailboxWorker struct {
	db      *gorm.DB
	logger  *logrus.Logger
	handler *utils.BounceHandler
	cfg     config.BounceMailboxConfig
}

func NewBounceMailboxWorker(db *gorm.DB, logger *logrus.Logger) *BounceMailboxWorker {
	return &BounceMailboxWorker{
		db:      db,
		logger:  logger,
		handler: utils.NewBounceHandler(db, logger),
		cfg:     config.AppConfig.BounceMailbox,
	}
}

func (bw *BounceMailboxWorker) Start(ctx context.Context) {
	bw.logger.Info("Starting bounce mailbox worker...")
	ticker := time.NewTicker(5 * time.Minute)

	for {
		select {
		case <-ticker.C:
			if err := bw.poll(); err != nil {
				bw.logger.WithError(err).Error("Bounce mailbox poll failed")
				sentry.CaptureException(err)
			}
		case <-ctx.Done():
			bw.logger.Info("Stopping bounce mailbox worker...")
			ticker.Stop()
			return
		}
	}
}

func (bw *BounceMailboxWorker) poll() error {
	addr := fmt.Sprintf("%s:%s", bw.cfg.Host, bw.cfg.Port)
	imapClient, err := client.DialTLS(addr, &tls.Config{ServerName: bw.cfg.Host})
	if err != nil {
		return fmt.Errorf("failed to connect to bounce mailbox: %w", err)
	}
	defer imapClient.Logout()

	if err := imapClient.Login(bw.cfg.Username, bw.cfg.Password); err != nil {
		return fmt.Errorf("failed to login to bounce mailbox: %w", err)
	}

	if _, err := imapClient.Select(bw.cfg.Folder, false); err != nil {
		return fmt.Errorf("failed to select mailbox %s: %w", bw.cfg.Folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{"\\Seen"}
	ids, err := imapClient.Search(criteria)
	if err != nil {
		return fmt.Errorf("failed to search messages: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- imapClient.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchItem("BODY.PEEK[]")}, messages)
	}()

	processed := 0
	handled := new(imap.SeqSet)
	for msg := range messages {
		if err := bw.processMessage(msg); err != nil {
			// Leave the message unseen so the next poll retries it
			bw.logger.WithError(err).WithField("seq", msg.SeqNum).Warn("Failed to process DSN message")
			continue
		}
		handled.AddNum(msg.SeqNum)
		processed++
	}
	if err := <-done; err != nil {
		return fmt.Errorf("error during fetch: %w", err)
	}

	// Mark only the handled messages as seen; failures stay in the queue
	if !handled.Empty() {
		markSeen := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := imapClient.Store(handled, markSeen, []interface{}{imap.SeenFlag}, nil); err != nil {
			bw.logger.WithError(err).Warn("Failed to mark DSN messages as seen")
		}
	}

	bw.logger.WithField("processed", processed).Info("Bounce mailbox poll completed")
	return nil
}

func (bw *BounceMailboxWorker) processMessage(msg *imap.Message) error {
	report, err := extractDeliveryStatus(msg)
	if err != nil {
		return err
	}
	if report == nil {
		// Not a DSN; auto-replies and the like land in the same mailbox
		return nil
	}

	var eventTime *time.Time
	if msg.Envelope != nil && !msg.Envelope.Date.IsZero() {
		eventTime = utils.Pointer(msg.Envelope.Date)
	}

	_, err = bw.handler.ProcessBounce(utils.BounceInput{
		Email:          report.Recipient,
		BounceType:     report.BounceType,
		BounceReason:   report.Reason,
		DiagnosticCode: report.DiagnosticCode,
		Timestamp:      eventTime,
	})
	if err != nil {
		if err == utils.ErrContactNotFound {
			bw.logger.WithField("email", report.Recipient).Debug("DSN for unknown contact ignored")
			return nil
		}
		return err
	}
	return nil
}

// extractDeliveryStatus pulls the message/delivery-status part out of a
// fetched message. The body map is keyed by the section pointer the client
// allocated while parsing the FETCH response, so the lookup must go through
// GetBody, which compares sections by value. Returns (nil, nil) for mail
// that is not a DSN.
func extractDeliveryStatus(msg *imap.Message) (*DeliveryStatusReport, error) {
	section := imap.BodySectionName{}
	literal := msg.GetBody(&section)
	if literal == nil {
		return nil, fmt.Errorf("message body not found")
	}

	mr, err := mail.CreateReader(literal)
	if err != nil {
		return nil, fmt.Errorf("failed to create message reader: %w", err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to read next part: %w", err)
		}

		contentType := partContentType(part.Header)
		if !strings.Contains(contentType, "message/delivery-status") {
			continue
		}

		raw, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read delivery status part: %w", err)
		}
		return ParseDeliveryStatus(raw), nil
	}

	return nil, nil
}

func partContentType(header interface{}) string {
	switch h := header.(type) {
	case *mail.InlineHeader:
		contentType, _, _ := h.ContentType()
		return contentType
	case *mail.AttachmentHeader:
		contentType, _, _ := h.ContentType()
		return contentType
	}
	return ""
}

// DeliveryStatusReport is the distilled outcome of one message/delivery-status
// part
type DeliveryStatusReport struct {
	Recipient      string
	Action         string
	Status         string
	DiagnosticCode string
	BounceType     string
	Reason         string
}

// ParseDeliveryStatus extracts the per-recipient fields from an RFC 3464
// delivery status body. Status classes map to bounce types: 5.x.x is a hard
// bounce, 4.x.x is soft. Returns nil when no final recipient is present.
func ParseDeliveryStatus(raw []byte) *DeliveryStatusReport {
	report := &DeliveryStatusReport{}

	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimRight(line, "\r")
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(name)) {
		case "final-recipient":
			// "rfc822; user@example.com"
			if _, addr, ok := strings.Cut(value, ";"); ok {
				report.Recipient = strings.TrimSpace(addr)
			} else {
				report.Recipient = value
			}
		case "action":
			report.Action = strings.ToLower(value)
		case "status":
			if report.Status == "" {
				report.Status = value
			}
		case "diagnostic-code":
			if report.DiagnosticCode == "" {
				report.DiagnosticCode = value
			}
		}
	}

	if report.Recipient == "" {
		return nil
	}

	switch {
	case strings.HasPrefix(report.Status, "5"):
		report.BounceType = utils.BounceTypeHard
	case strings.HasPrefix(report.Status, "4"):
		report.BounceType = utils.BounceTypeSoft
	case report.Action == "failed":
		report.BounceType = utils.BounceTypeHard
	default:
		report.BounceType = utils.BounceTypeSoft
	}

	report.Reason = report.DiagnosticCode
	if report.Reason == "" {
		report.Reason = report.Status
	}

	return report
}
