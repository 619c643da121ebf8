package utils

import (
	"fmt"
	"sync/atomic"
	"time"
)

var idSeq uint64

func gen(prefix string) string {
	n := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("%s-%d-%d", prefix, n, s)
}

// GenMessageID returns a new unique message identifier.
func GenMessageID() string { return gen("msg") }

// GenThreadID returns a new unique thread identifier.
func GenThreadID() string { return gen("thread") }

// GenUserID returns a new unique user identifier.
func GenUserID() string { return gen("user") }

// GenConnID returns a new unique connection handle identifier.
func GenConnID() string { return gen("conn") }
