package network

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/schollz/progressbar/v3"
)

// DownloadFile fetches url into destPath with a progress bar on the console.
// It makes a single attempt; callers wrap it in a retry when the download is
// allowed to fail transiently.
func DownloadFile(client *http.Client, url string, destPath string, mode os.FileMode) error {
	name := path.Base(url)

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: bad status: %s", url, resp.Status)
	}

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}
	defer out.Close()

	bar := progressbar.NewOptions64(resp.ContentLength,
		progressbar.OptionSetDescription(fmt.Sprintf("downloading %s", name)),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	if _, err := io.Copy(io.MultiWriter(out, bar), resp.Body); err != nil {
		return fmt.Errorf("writing %s: %w", destPath, err)
	}
	return nil
}
