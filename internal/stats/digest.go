package stats

import "fmt"

// digestSeed is the initial hash state; an empty snapshot therefore always
// digests to "5381:0".
const digestSeed uint64 = 5381

// hasher accumulates a 64-bit rolling hash over every byte fed to it:
// hash = hash*33 XOR byte. Deterministic and cheap, good enough for
// change detection and nothing more — never use the digest for trust
// decisions.
type hasher struct {
	hash  uint64
	tasks uint64
}

func newHasher() *hasher {
	return &hasher{hash: digestSeed}
}

func (h *hasher) WriteString(value string) {
	for _, b := range []byte(value) {
		h.hash = h.hash*33 ^ uint64(b)
	}
}

func (h *hasher) CountTask() {
	h.tasks++
}

// Digest renders the final fingerprint as "{hash}:{task_count}".
func (h *hasher) Digest() string {
	return fmt.Sprintf("%d:%d", h.hash, h.tasks)
}
