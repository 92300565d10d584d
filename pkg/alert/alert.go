// Package alert sends email notifications for high-risk devices.
package alert

import (
	"fmt"

	"github.com/sirupsen/logrus"
	gomail "gopkg.in/gomail.v2"

	"github.com/ExclusiveAccount/exposure-dashboard/pkg/config"
	"github.com/ExclusiveAccount/exposure-dashboard/pkg/models"
)

// Threshold is the risk score a device must exceed (strictly) before an alert
// is sent.
const Threshold = 75

// Sender delivers a single plain-text message. Satisfied by gomail's Dialer;
// swapped for a recorder in tests.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Dispatcher emails an alert when a device's risk score crosses the
// threshold. Delivery is best-effort: failures are logged and never surfaced
// to the scoring flow.
type Dispatcher struct {
	sender    Sender
	recipient string
	from      string
	logger    *logrus.Logger
}

// NewDispatcher creates a dispatcher using SMTP settings from the config.
func NewDispatcher(cfg config.Config, logger *logrus.Logger) *Dispatcher {
	if logger == nil {
		logger = logrus.New()
	}

	recipient := cfg.AlertRecipient
	if recipient == "" {
		recipient = "admin@example.com"
	}

	return &Dispatcher{
		sender:    gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		recipient: recipient,
		from:      cfg.AlertSender,
		logger:    logger,
	}
}

// MaybeAlert sends one notification for the device if its score exceeds the
// threshold. It reports whether an alert was attempted; dispatch errors are
// swallowed after logging.
func (d *Dispatcher) MaybeAlert(device *models.DeviceRecord, score int) bool {
	if score <= Threshold {
		return false
	}

	d.logger.Infof("sending alert for high-risk device %s (score: %d)", device.IP, score)

	msg := gomail.NewMessage()
	msg.SetHeader("From", d.from)
	msg.SetHeader("To", d.recipient)
	msg.SetHeader("Subject", "IoT Risk Alert: Critical Device Detected")
	msg.SetBody("text/plain", fmt.Sprintf("Critical device found: %s with risk score %d", device.IP, score))

	if err := d.sender.DialAndSend(msg); err != nil {
		d.logger.Warnf("failed to send alert for %s: %v", device.IP, err)
	}
	return true
}
