package selfupdate

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const binaryName = "quizcraft"

var (
	ErrDevBuild      = errors.New("cannot update a development build")
	ErrAlreadyLatest = errors.New("already running the latest version")
	ErrChecksum      = errors.New("checksum verification failed")
)

type UpdateInput struct {
	CurrentVersion string
	// TargetVersion skips the release check when set.
	TargetVersion string
}

type UpdateProgress struct {
	Stage   string
	Message string
}

// Update downloads the release archive for this platform, verifies it
// against the published checksums and swaps it in for the running binary.
func (c *Checker) Update(ctx context.Context, input *UpdateInput, progress func(UpdateProgress)) error {
	if progress == nil {
		progress = func(UpdateProgress) {}
	}
	if canonical(input.CurrentVersion) == "" {
		return ErrDevBuild
	}

	tag := input.TargetVersion
	if tag == "" {
		progress(UpdateProgress{Stage: "check", Message: "Checking for latest version..."})
		res, err := c.Check(ctx, &CheckInput{Version: input.CurrentVersion})
		if err != nil {
			return fmt.Errorf("check for updates: %w", err)
		}
		if !res.UpdateAvailable {
			return ErrAlreadyLatest
		}
		tag = res.LatestVersion
	}

	asset, err := assetNameFor(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return err
	}

	progress(UpdateProgress{Stage: "download", Message: fmt.Sprintf("Downloading %s...", tag)})
	archive, err := c.download(ctx, c.releaseURL(tag, asset))
	if err != nil {
		return fmt.Errorf("download archive: %w", err)
	}

	progress(UpdateProgress{Stage: "verify", Message: "Verifying checksum..."})
	sums, err := c.download(ctx, c.releaseURL(tag, "checksums.txt"))
	if err != nil {
		return fmt.Errorf("download checksums: %w", err)
	}
	want, ok := parseChecksums(sums)[asset]
	if !ok {
		return fmt.Errorf("%w: %s not listed in checksums.txt", ErrChecksum, asset)
	}
	if err := verifyChecksum(archive, want); err != nil {
		return err
	}

	progress(UpdateProgress{Stage: "extract", Message: "Extracting binary..."})
	bin, err := extractBinary(archive, asset)
	if err != nil {
		return fmt.Errorf("extract binary: %w", err)
	}

	progress(UpdateProgress{Stage: "apply", Message: "Applying update..."})
	target, err := c.execPath()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		target = resolved
	}
	sum := sha256.Sum256(bin)
	if err := applyUpdate(bin, target, sum[:]); err != nil {
		return fmt.Errorf("apply update: %w", err)
	}

	progress(UpdateProgress{Stage: "done", Message: fmt.Sprintf("Updated to %s", tag)})
	return nil
}

func (c *Checker) releaseURL(tag, file string) string {
	return fmt.Sprintf("%s/%s/%s/releases/download/%s/%s", c.downloadBaseURL, c.owner, c.repo, tag, file)
}

// assetNameFor follows the goreleaser archive naming of the release job.
func assetNameFor(goos, goarch string) (string, error) {
	if goos == "darwin" {
		return binaryName + "_Darwin_all.tar.gz", nil
	}

	arch, ok := map[string]string{"amd64": "x86_64", "arm64": "arm64", "386": "i386"}[goarch]
	if !ok {
		return "", fmt.Errorf("unsupported architecture: %s", goarch)
	}
	switch goos {
	case "linux":
		return fmt.Sprintf("%s_Linux_%s.tar.gz", binaryName, arch), nil
	case "windows":
		return fmt.Sprintf("%s_Windows_%s.zip", binaryName, arch), nil
	}
	return "", fmt.Errorf("unsupported operating system: %s", goos)
}

func (c *Checker) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

// parseChecksums reads "<sha256>  <file>" lines. Anything else is skipped.
func parseChecksums(data []byte) map[string]string {
	sums := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 2 {
			sums[fields[1]] = fields[0]
		}
	}
	return sums
}

func verifyChecksum(data []byte, wantHex string) error {
	got := sha256.Sum256(data)
	if gotHex := hex.EncodeToString(got[:]); !strings.EqualFold(gotHex, wantHex) {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksum, wantHex, gotHex)
	}
	return nil
}

func extractBinary(archive []byte, asset string) ([]byte, error) {
	if strings.HasSuffix(asset, ".zip") {
		return extractFromZip(archive, binaryName+".exe")
	}
	return extractFromTarGz(archive, binaryName)
}

func extractFromTarGz(data []byte, name string) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("binary %q not found in archive", name)
		}
		if err != nil {
			return nil, fmt.Errorf("read tar: %w", err)
		}
		if hdr.Typeflag == tar.TypeReg && filepath.Base(hdr.Name) == name {
			return io.ReadAll(tr)
		}
	}
}

func extractFromZip(data []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	for _, f := range zr.File {
		if filepath.Base(f.Name) != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = rc.Close() }()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("binary %q not found in archive", name)
}

// applyUpdate writes the new binary next to target, re-verifies it on disk
// and renames it into place, keeping target's permissions.
func applyUpdate(bin []byte, target string, wantSum []byte) error {
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("stat target: %w", err)
	}

	tmpDir, err := os.MkdirTemp(filepath.Dir(target), "."+binaryName+"-update-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	staged := filepath.Join(tmpDir, binaryName+"-new")
	if err := os.WriteFile(staged, bin, 0o600); err != nil {
		return fmt.Errorf("write staged binary: %w", err)
	}

	written, err := os.ReadFile(staged)
	if err != nil {
		return fmt.Errorf("re-read staged binary: %w", err)
	}
	if sum := sha256.Sum256(written); !bytes.Equal(sum[:], wantSum) {
		return fmt.Errorf("%w: staged binary changed after write", ErrChecksum)
	}

	if err := os.Chmod(staged, info.Mode()); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(staged, target); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
