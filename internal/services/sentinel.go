// Sentinel detection for the dialogue token stream.
//
// The generation model hands off to the recipe pipeline by embedding a
// literal trigger token in its own prose, immediately followed by a one-line
// JSON parameter object. Because the token can arrive split across any number
// of stream chunks, detection is modeled as an explicit two-state scanner fed
// one chunk at a time rather than substring checks scattered through the
// turn handler.
package services

import "strings"

// GenerateSentinel is the in-band trigger token emitted by the model to hand
// off from free-form dialogue to structured recipe generation.
const GenerateSentinel = "[GENERATE_RECIPES]"

// sentinelScanner consumes stream chunks and splits the model output into
// prose (before the sentinel) and payload (after it).
//
// States:
//   - prose: chunks are relayed to the client, except for a withheld suffix
//     that could still turn out to be the beginning of the sentinel.
//   - payload: everything after the sentinel is accumulated silently until
//     the stream ends; nothing is relayed.
type sentinelScanner struct {
	sentinel  string
	triggered bool

	prose   strings.Builder // prose already released via Feed
	held    string          // prose suffix withheld as a possible sentinel prefix
	payload strings.Builder // everything after the sentinel
}

func newSentinelScanner() *sentinelScanner {
	return &sentinelScanner{sentinel: GenerateSentinel}
}

// Feed consumes one stream chunk and returns the prose that is now safe to
// relay to the client. After the sentinel has been seen, Feed always returns
// "" and accumulates the chunk into the payload.
func (s *sentinelScanner) Feed(chunk string) string {
	if s.triggered {
		s.payload.WriteString(chunk)
		return ""
	}

	buf := s.held + chunk
	if idx := strings.Index(buf, s.sentinel); idx >= 0 {
		s.triggered = true
		s.held = ""
		s.payload.WriteString(buf[idx+len(s.sentinel):])
		out := buf[:idx]
		s.prose.WriteString(out)
		return out
	}

	// Withhold the longest suffix of buf that is a proper prefix of the
	// sentinel; it may be completed by the next chunk.
	keep := 0
	max := len(s.sentinel) - 1
	if max > len(buf) {
		max = len(buf)
	}
	for k := max; k > 0; k-- {
		if strings.HasSuffix(buf, s.sentinel[:k]) {
			keep = k
			break
		}
	}

	out := buf[:len(buf)-keep]
	s.held = buf[len(buf)-keep:]
	s.prose.WriteString(out)
	return out
}

// Triggered reports whether the sentinel has been seen.
func (s *sentinelScanner) Triggered() bool { return s.triggered }

// Flush returns any withheld prose once the stream has ended without a
// trigger (a held partial prefix was ordinary text after all).
func (s *sentinelScanner) Flush() string {
	out := s.held
	s.held = ""
	s.prose.WriteString(out)
	return out
}

// Prose returns all text seen before the sentinel (released plus withheld).
func (s *sentinelScanner) Prose() string {
	return s.prose.String() + s.held
}

// Payload returns the accumulated text after the sentinel.
func (s *sentinelScanner) Payload() string {
	return s.payload.String()
}
