package capture

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"
)

var artifactSeq atomic.Int64

// rawArtifactPath derives a fresh temporary path for one recording's native
// container. A process-wide counter plus a random suffix guarantees that
// concurrent recordings never collide, even when started within the same
// timestamp tick.
func rawArtifactPath(dir string) string {
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	name := fmt.Sprintf("pagecast_rec_%d_%d_%s%s",
		time.Now().UnixNano(), artifactSeq.Add(1), hex.EncodeToString(buf[:]), FormatMJPEG.Ext())
	return filepath.Join(dir, name)
}
