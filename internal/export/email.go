package export

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"beliefpad/api/internal/catalog"
	"beliefpad/api/internal/document"
)

// Preamble is the fixed explanation printed at the top of every PDF and email.
var Preamble = []string{
	`Belief systems are composed, on average, of about nine negative statements that together form a subconscious program. These programs operate automatically, without conscious thought, much like a train running the same track repeatedly. They shape how we respond to life and experiences, often without us realizing it.`,
	`In a Belief Code session, the belief system is symbolized by a tree. The branches of the tree represent the Negative Programs, or NP. These are the conscious, repetitive thoughts we often hear in our minds—things like "I'm not good enough," "I'm so absent-minded," or "I'm a bad person." Each belief system contains between one and four NPs.`,
	`The trunk of the tree represents the Limiting Beliefs, or LB. These are usually less conscious than the NPs but still somewhat familiar. These beliefs, which typically number between one and three, act as the structural support for the rest of the belief system.`,
	`The roots of the tree represent the Faulty Core Beliefs, or FCB. These beliefs usually formed before the age of seven, when we lacked the cognitive ability to filter what we were told or what we observed. Because of this, these experiences often became deeply embedded in our subconscious. FCBs are typically less familiar and usually, there is only one per belief system.`,
	`Beneath the roots, the soil represents the Faulty Core Identity, or FCI. These are deep subconscious beliefs also formed before the age of seven. They often feel entirely unfamiliar or even untrue to your current self, but they may still exert influence. If present, there is only one FCI per belief.`,
	`When a number is placed next to one of these abbreviations—for example, NP2, LB3, or FCB1—it refers to which belief system that particular statement comes from. So NP2 would mean a Negative Program from the second belief system, and LB3 would indicate a Limiting Belief from the third belief system, and so on. This helps keep track of multiple belief systems when working through them in a session.`,
	`Belief systems can originate in a variety of ways. They may be inherited from a biological parent and passed down energetically at the moment of conception, much like a physical trait. Beliefs can also be learned or suggested through what we observe or are told, especially by those who hold influence over us, such as parents, teachers, or caregivers. Sometimes, beliefs are formed from our own interpretations of life experiences, particularly during emotional or impactful moments.`,
	`Removing a belief system creates space in the subconscious mind. This space must be integrated or filled to restore balance and peace. At the end of a session, we either install positive statements aligned with your highest good or use a short guided meditation to "defragment" the subconscious—gently closing the gaps where negative beliefs once resided. This helps ensure that your system feels settled and harmonized after the work is complete.`,
}

// Divider separates section groups in the email body.
var Divider = strings.Repeat("─", 88)

// Email is a rendered subject and plain text body.
type Email struct {
	Subject string
	Body    string
}

// SessionDate formats t the way the session date appears in every output.
func SessionDate(t time.Time) string {
	return t.Format("1/2/2006")
}

// EmailSubject is the subject line for d.
func EmailSubject(d document.Document) string {
	return "Belief Code Session for " + d.Title
}

// EmailContent renders d as an email. Lines are separated by a blank line and
// sections with blank content are left out.
func EmailContent(d document.Document, date time.Time) Email {
	lines := make([]string, 0, len(Preamble)+16)
	lines = append(lines, Preamble...)
	lines = append(lines, "")
	lines = append(lines, "Session Date: "+SessionDate(date))

	if strings.TrimSpace(d.Subject) != "" {
		lines = append(lines, "Subject:", d.Subject, "")
	}
	if strings.TrimSpace(d.Details) != "" {
		lines = append(lines, "Details:", d.Details)
	}
	if strings.TrimSpace(d.SessionType) != "" {
		lines = append(lines, "Session Type: "+d.SessionType)
	}
	if strings.TrimSpace(d.SourceOfBelief) != "" {
		lines = append(lines, "Source of Belief: "+d.SourceOfBelief)
	}

	emotions := document.WithContent(d.ConnectedEmotionsSections)
	sections := document.WithContent(d.Sections)

	if len(emotions) > 0 || len(sections) > 0 {
		lines = append(lines, Divider, "")
		if len(emotions) > 0 {
			lines = append(lines, "", "CONNECTED EMOTIONS:", "")
			for _, section := range emotions {
				lines = append(lines, sectionLine(catalog.Emotions(), section))
			}
		}
		if len(emotions) > 0 && len(sections) > 0 {
			lines = append(lines, "", Divider, "")
		}
		for _, section := range sections {
			lines = append(lines, sectionLine(catalog.Primary(), section))
		}
	}

	return Email{
		Subject: EmailSubject(d),
		Body:    strings.Join(lines, "\n\n"),
	}
}

func sectionLine(cat *catalog.Catalog, section document.Section) string {
	return fmt.Sprintf("%s: %s", cat.DisplayHeading(section.Heading), section.Content)
}

// MailtoLink builds a mail client link with a prefilled subject and body.
func MailtoLink(to string, email Email) string {
	query := "subject=" + mailtoEscape(email.Subject) + "&body=" + mailtoEscape(email.Body)
	return "mailto:" + url.PathEscape(strings.TrimSpace(to)) + "?" + query
}

// url.QueryEscape turns spaces into "+", which mail clients show literally.
func mailtoEscape(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}
