// Package push classifies stream events into desktop-notification
// candidates.
package push

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/bulletd/bulletd/tool"
	"github.com/bulletd/bulletd/types"
)

// Account is the collaborator the classifier needs: history retrieval
// for tickles and decryption for encrypted payloads.
type Account interface {
	GetPushes() ([]types.Push, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// Classify maps one stream event to at most one notification candidate.
// A nil candidate with nil error means the event is not interesting;
// errors mean the event could not be processed and the stream attempt
// should be treated as failed.
func Classify(account Account, event types.Event) (*types.Candidate, error) {
	tool.DefaultLogger.Debugf("Got event: type=%s subtype=%s", event.Type, event.Subtype)

	switch event.Type {
	case "tickle":
		return classifyTickle(account)
	case "push":
		return classifyPush(account, event.Push)
	default:
		// Deliberate filtering, not an error.
		return nil, nil
	}
}

// classifyTickle fetches the newest history item and classifies that.
// Nothing is cached; every tickle fetches fresh.
func classifyTickle(account Account) (*types.Candidate, error) {
	pushes, err := account.GetPushes()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest push: %v", err)
	}
	if len(pushes) == 0 {
		return nil, fmt.Errorf("push history is empty")
	}
	latest := pushes[0]
	tool.DefaultLogger.Debugf("Last push: iden=%s type=%s", latest.Iden, latest.Type)

	// Not every history item carries an explicit title.
	title := latest.SenderName
	if title == "" {
		title = latest.Title
	}
	body := latest.Body
	if body == "" && latest.Type == "file" {
		body = fmt.Sprintf("New file received: %s", latest.FileName)
	}

	return gate(title, body, latest.Dismissed, latest.Iden), nil
}

// classifyPush unwraps an inline push payload, decrypting it first when
// flagged. Only mirrored phone notifications produce a candidate.
func classifyPush(account Account, payload *types.PushEnvelope) (*types.Candidate, error) {
	if payload == nil {
		return nil, fmt.Errorf("push event carries no payload")
	}
	if payload.Encrypted {
		plain, err := account.Decrypt(payload.Ciphertext)
		if err != nil {
			return nil, err
		}
		var decrypted types.PushEnvelope
		if err := sonic.Unmarshal(plain, &decrypted); err != nil {
			return nil, fmt.Errorf("failed to parse decrypted push: %v", err)
		}
		tool.DefaultLogger.Debugf("Decrypted push: type=%s app=%s", decrypted.Type, decrypted.ApplicationName)
		payload = &decrypted
	}

	if payload.Type != "mirror" {
		return nil, nil
	}

	title := fmt.Sprintf("[%s] %s", payload.ApplicationName, payload.Title)
	key := ""
	if payload.NotificationID != "" {
		key = payload.PackageName + "/" + payload.NotificationID
	}
	return gate(title, payload.Body, payload.Dismissed, key), nil
}

// gate applies the final suppression rules: dismissed payloads and
// empty titles or bodies never notify.
func gate(title, body string, dismissed bool, key string) *types.Candidate {
	if dismissed || title == "" || body == "" {
		return nil
	}
	return &types.Candidate{Title: title, Body: body, Key: key}
}
