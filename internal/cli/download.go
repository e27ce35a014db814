package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// downloadProgress returns a progress bar for one archive download. size is
// -1 when the server sends no Content-Length.
func (c *CLI) downloadProgress(filename string, size int64) io.Writer {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(c.status),
		progressbar.OptionSetDescription(StyleDim.Render(filename)),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.status)
		}),
	)
}
