package email

import "github.com/dukerupert/fusionx/internal/domain"

var (
	ErrInvalidFromAddress = domain.Errorf(domain.EINVALID, "email.send", "Invalid from email address")
	ErrInvalidToAddress   = domain.Errorf(domain.EINVALID, "email.send", "Invalid to email address")

	// ErrSendFailed wraps rejections from the mail server.
	ErrSendFailed = domain.Errorf(domain.EINTERNAL, "email.send", "Email could not be sent")
)

// ErrTemplateNotFound reports a template missing from the embedded set.
func ErrTemplateNotFound(templateName string) error {
	return domain.Errorf(domain.ENOTFOUND, "email.render", "Email template %s not found", templateName)
}
