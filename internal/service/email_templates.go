package service

import (
	"fmt"
	"strings"

	"github.com/templui/fileshare/internal/format"
)

func shareLinkEmailTemplate(senderName, fileName, size, link, expires, message, appName string) (string, string) {
	if senderName == "" {
		senderName = "Someone"
	}
	subject := fmt.Sprintf("%s shared %s with you", senderName, fileName)

	var note string
	if message != "" {
		note = fmt.Sprintf("\nMessage from %s:\n%s\n", senderName, message)
	}

	body := fmt.Sprintf(`%s sent you a file with %s.

%s (%s)
%s
%s
The link expires on %s.

Best,
The %s Team`, senderName, appName, fileName, size, link, note, expires, appName)

	return subject, body
}

func welcomeEmailTemplate(name, appURL, appName string) (string, string) {
	if name == "" {
		name = "there"
	}
	subject := fmt.Sprintf("Welcome to %s!", appName)
	body := fmt.Sprintf(`Hi %s,

Your account is ready. Upload a file and share the link with anyone:
%s

Best,
The %s Team`, name, appURL, appName)

	return subject, body
}

func verifyEmailTemplate(name, link, appName string) (string, string) {
	if name == "" {
		name = "there"
	}
	subject := fmt.Sprintf("Confirm your email for %s", appName)
	body := fmt.Sprintf(`Hi %s,

Please confirm your email address to finish creating your account:
%s

If you did not sign up, you can ignore this email.

Best,
The %s Team`, name, link, appName)

	return subject, body
}

func accessDigestEmailTemplate(name string, items []AccessItem, appURL, appName string) (string, string) {
	if name == "" {
		name = "there"
	}
	subject := fmt.Sprintf("Your files were downloaded %s", plural(len(items), "time", "times"))

	var lines strings.Builder
	for _, item := range items {
		fmt.Fprintf(&lines, "- %s, %s", item.FileName, format.DateTime(item.DownloadedAt))
		if item.IPAddress != "" {
			fmt.Fprintf(&lines, " from %s", item.IPAddress)
		}
		lines.WriteString("\n")
	}

	body := fmt.Sprintf(`Hi %s,

Recent downloads of your shared files:
%s
Manage your shares at %s/app/shares

You can turn these emails off in your notification settings.

Best,
The %s Team`, name, lines.String(), appURL, appName)

	return subject, body
}

func expiryDigestEmailTemplate(name string, items []ExpiryItem, appURL, appName string) (string, string) {
	if name == "" {
		name = "there"
	}
	subject := fmt.Sprintf("%s expiring soon", plural(len(items), "share", "shares"))

	var lines strings.Builder
	for _, item := range items {
		fmt.Fprintf(&lines, "- %s, expires %s\n", item.FileName, format.DateTime(item.ExpiresAt))
	}

	body := fmt.Sprintf(`Hi %s,

These shared files stop being available within a day:
%s
Upload them again at %s if recipients still need them.

Best,
The %s Team`, name, lines.String(), appURL, appName)

	return subject, body
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}
