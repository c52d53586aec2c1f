package application

import (
	"errors"
	"strings"

	"github.com/zapgate/zapgate/internal/domain"
)

// recoverableSignatures are the disconnect reasons the network is known to
// emit for conditions that clear up on an immediate reconnect.
var recoverableSignatures = []string{
	"stream errored",
	"connection failure",
	"restart required",
}

// IsRecoverable reports whether a connection failure is worth an automatic
// retry. Logged-out is terminal by definition and a bare acquisition timeout
// means nobody scanned the QR, which a retry cannot fix.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrLoggedOut) || errors.Is(err, domain.ErrAcquireTimeout) {
		return false
	}

	message := strings.ToLower(err.Error())
	for _, signature := range recoverableSignatures {
		if strings.Contains(message, signature) {
			return true
		}
	}
	return false
}
