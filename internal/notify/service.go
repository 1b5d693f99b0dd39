// Package notify composes outbound messages for clients. It performs no I/O:
// callers get a click-to-chat link back and decide how to surface it.
package notify

import (
	"fmt"
	"strings"
	"time"
)

// DefaultWhatsAppBaseURL is the click-to-chat endpoint.
const DefaultWhatsAppBaseURL = "https://wa.me"

// Composer builds message bodies and messaging deep links.
type Composer struct {
	baseURL  string
	location *time.Location
}

// NewComposer creates a composer. Dates are rendered in loc (UTC when nil).
func NewComposer(baseURL string, loc *time.Location) *Composer {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultWhatsAppBaseURL
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Composer{baseURL: baseURL, location: loc}
}

// ComposeLink returns <base>/<digits>?text=<encoded message>.
func (c *Composer) ComposeLink(phone, message string) string {
	return fmt.Sprintf("%s/%s?text=%s", c.baseURL, DigitsOnly(phone), EncodeURIComponent(message))
}

// ComposeBookingMessage renders the online-session confirmation sent to a client.
func (c *Composer) ComposeBookingMessage(clientName string, when time.Time, practitionerName, meetLink string) string {
	return fmt.Sprintf(`Merhaba %s,

Online seans randevunuz oluşturulmuştur:

📅 Tarih: %s
👨‍⚕️ Psikolog: %s

🔗 Toplantı Linki: %s

Randevu saatinizde bu linke tıklayarak seansa katılabilirsiniz.

Sağlıklı günler dileriz.`, clientName, c.FormatDateTime(when), practitionerName, meetLink)
}

// FormatDateTime renders dd.MM.yyyy HH:mm in the clinic zone.
func (c *Composer) FormatDateTime(t time.Time) string {
	return t.In(c.location).Format("02.01.2006 15:04")
}

// DigitsOnly strips everything but ASCII digits.
func DigitsOnly(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			b.WriteByte(phone[i])
		}
	}
	return b.String()
}

const upperhex = "0123456789ABCDEF"

// EncodeURIComponent percent-encodes s the way browsers' encodeURIComponent
// does: UTF-8 bytes, with A-Z a-z 0-9 and -_.!~*'() left as is.
func EncodeURIComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isUnreserved(ch) {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[ch>>4])
		b.WriteByte(upperhex[ch&15])
	}
	return b.String()
}

func isUnreserved(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	}
	switch ch {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
