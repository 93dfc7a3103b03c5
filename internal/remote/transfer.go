package remote

import (
	"bytes"
	"fmt"
	"os"

	"github.com/moby/go-archive"
	"github.com/moby/go-archive/compression"
)

// Upload writes data to a remote file via a cat redirect (avoids an scp
// binary dependency on the host).
func (s *sshSession) Upload(remotePath string, data []byte, mode os.FileMode) error {
	sess, err := s.client.NewSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	sess.Stdin = bytes.NewReader(data)
	cmd := fmt.Sprintf("cat > %q && chmod %o %q", remotePath, mode, remotePath)
	if out, err := sess.CombinedOutput(cmd); err != nil {
		return fmt.Errorf("upload %q: %w (output: %s)", remotePath, err, out)
	}
	return nil
}

// Download returns the contents of a remote file.
func (s *sshSession) Download(remotePath string) ([]byte, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	out, err := sess.Output(fmt.Sprintf("cat %q", remotePath))
	if err != nil {
		return nil, fmt.Errorf("download %q: %w", remotePath, err)
	}
	return out, nil
}

// UploadTree streams localDir as a gzipped tar into remoteDir.
func (s *sshSession) UploadTree(localDir, remoteDir string) error {
	tarStream, err := archive.TarWithOptions(localDir, &archive.TarOptions{
		Compression: compression.Gzip,
	})
	if err != nil {
		return fmt.Errorf("tar %q: %w", localDir, err)
	}
	defer tarStream.Close()

	sess, err := s.client.NewSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	sess.Stdin = tarStream
	cmd := fmt.Sprintf("mkdir -p %q && tar -xz -C %q", remoteDir, remoteDir)
	if out, err := sess.CombinedOutput(cmd); err != nil {
		return fmt.Errorf("upload tree to %q: %w (output: %s)", remoteDir, err, out)
	}
	return nil
}

// DownloadTree streams remoteDir as a gzipped tar and unpacks it into
// localDir.
func (s *sshSession) DownloadTree(remoteDir, localDir string) error {
	if err := os.MkdirAll(localDir, 0755); err != nil {
		return fmt.Errorf("create %q: %w", localDir, err)
	}

	sess, err := s.client.NewSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	stdout, err := sess.StdoutPipe()
	if err != nil {
		return err
	}
	if err := sess.Start(fmt.Sprintf("tar -cz -C %q .", remoteDir)); err != nil {
		return fmt.Errorf("start remote tar of %q: %w", remoteDir, err)
	}

	if err := archive.Untar(stdout, localDir, &archive.TarOptions{NoLchown: true}); err != nil {
		return fmt.Errorf("unpack %q: %w", remoteDir, err)
	}
	if err := sess.Wait(); err != nil {
		return fmt.Errorf("remote tar of %q: %w", remoteDir, err)
	}
	return nil
}
