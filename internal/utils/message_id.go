package utils

import (
	"crypto/sha256"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// GenerateMessageID builds an RFC 5322 style message identifier for messages that arrive without one.
// When metadata is given, a short hash of it is mixed into the local part.
func GenerateMessageID(domain, metadata string) string {
	id, err := gonanoid.Generate(nanoIDAlphabet, 12)
	if err != nil {
		id = gonanoid.Must(12)
	}

	timestamp := time.Now().UnixMicro()

	var hashComponent string
	if metadata != "" {
		hash := sha256.Sum256([]byte(metadata))
		hashComponent = fmt.Sprintf(".%x", hash[:4])
	}

	localPart := fmt.Sprintf("%d.%s%s", timestamp, id, hashComponent)
	return fmt.Sprintf("<%s@%s>", localPart, domain)
}
