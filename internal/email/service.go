package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"vibes/internal/logger"
	"vibes/internal/metrics"

	"github.com/redis/go-redis/v9"
)

type EmailJob struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Service queues notification emails through redis and drains the queue
// in the background. Settlement treats every call as fire-and-forget: a
// failed notification never rolls back a completed settlement.
type Service struct {
	redis    *redis.Client
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

func (s *Service) Send(ctx context.Context, to, name, subject, body string) error {
	job := EmailJob{
		To:      to,
		Name:    name,
		Subject: subject,
		Body:    body,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal email job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, "emails", data).Err(); err != nil {
		logger.Errorf("Failed to queue email to %s: %v", to, err)
		return err
	}

	logger.Infof("Email queued: %s to %s", subject, to)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Email service started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Email service stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, "emails").Result()
	if err != nil {
		return
	}

	metrics.EmailQueueLength.Set(float64(s.QueueLength(ctx)))

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad email data: %v", err)
		return
	}

	job.Tries++
	logger.Infof("Sending email to %s (attempt %d)", job.To, job.Tries)
	if err := s.sendNow(job); err != nil {
		logger.Errorf("Failed to send email to %s: %v", job.To, err)

		if job.Tries < 3 {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), "emails", data)
			logger.Infof("Retrying email to %s (attempt %d)", job.To, job.Tries+1)
		} else {
			logger.Errorf("Email to %s failed after 3 attempts", job.To)
			metrics.RecordEmail("notification", "failed")
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordEmail("notification", "success")
	logger.Infof("Email sent successfully to %s", job.To)
}

func (s *Service) sendNow(job EmailJob) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job EmailJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), "emails:failed", data)
	logger.Errorf("Email moved to failed queue: %s", job.To)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, "emails").Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}

func (s *Service) SendPaymentReceipt(ctx context.Context, email, name string, totalCents int64, currency, reference string) error {
	subject := "Payment Confirmed"
	body := fmt.Sprintf(`Hi %s,

Your payment went through!

Amount: %s
Reference: %s

Thanks for booking with us.

- Vibes Events Team`, name, formatAmount(totalCents, currency), reference)

	return s.Send(ctx, email, name, subject, body)
}

func (s *Service) SendRefundNotice(ctx context.Context, email, name string, refundCents int64, currency string, manual bool) error {
	subject := "Refund Issued"
	timing := "It should reach you within a few business days."
	if manual {
		timing = "Our team is processing it manually and will follow up shortly."
	}
	body := fmt.Sprintf(`Hi %s,

Your booking was cancelled and a refund of %s is on its way.
%s

- Vibes Events Team`, name, formatAmount(refundCents, currency), timing)

	return s.Send(ctx, email, name, subject, body)
}

func (s *Service) SendRescheduleNotice(ctx context.Context, email, name string, when time.Time, feeCents int64, currency string) error {
	subject := "Booking Rescheduled"
	feeLine := ""
	if feeCents > 0 {
		feeLine = fmt.Sprintf("\nA reschedule fee of %s was charged to your wallet.\n", formatAmount(feeCents, currency))
	}
	body := fmt.Sprintf(`Hi %s,

Your booking was moved to %s.
%s
- Vibes Events Team`, name, when.Format("Jan 2, 2006 at 3:04 PM"), feeLine)

	return s.Send(ctx, email, name, subject, body)
}

func (s *Service) SendCancellation(ctx context.Context, email, name, details string) error {
	subject := "Booking Cancelled"
	body := fmt.Sprintf(`Hi %s,

Your booking has been cancelled:

%s

- Vibes Events Team`, name, details)

	return s.Send(ctx, email, name, subject, body)
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}
