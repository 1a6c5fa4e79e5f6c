package signal

import "strings"

// address is the parsed form of an @-prefixed message body:
// "@user text" for private, "@{u1,u2,...} text" for multicast.
type address struct {
	recipients []string
	body       string
}

func parseAddress(body string) (address, bool) {
	if !strings.HasPrefix(body, "@") {
		return address{}, false
	}

	if strings.HasPrefix(body, "@{") {
		end := strings.Index(body, "}")
		if end < 0 {
			return address{}, false
		}
		var recipients []string
		for _, name := range strings.Split(body[2:end], ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				recipients = append(recipients, name)
			}
		}
		if len(recipients) == 0 {
			return address{}, false
		}
		return address{
			recipients: recipients,
			body:       strings.TrimSpace(body[end+1:]),
		}, true
	}

	rest := body[1:]
	sp := strings.IndexByte(rest, ' ')
	if sp <= 0 {
		return address{}, false
	}
	return address{
		recipients: []string{rest[:sp]},
		body:       strings.TrimSpace(rest[sp+1:]),
	}, true
}
