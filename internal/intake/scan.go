package intake

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/dutchcoders/go-clamd"
)

// ErrMaliciousFile 表示 ClamAV 在上传内容里发现了威胁。
var ErrMaliciousFile = errors.New("malicious file detected")

// Scanner 在文本抽取之前对上传内容做病毒扫描。
// Addr 为空时扫描被跳过（部署环境没有 clamd）。
type Scanner struct {
	Addr string
}

func NewScanner(addr string) *Scanner {
	return &Scanner{Addr: addr}
}

// Scan 把内容流给 clamd。发现威胁返回 ErrMaliciousFile，
// 连接/协议故障返回包装错误。
func (s *Scanner) Scan(data []byte) error {
	if s.Addr == "" {
		return nil
	}

	client := clamd.NewClamd(s.Addr)
	abort := make(chan bool)
	defer close(abort)

	results, err := client.ScanStream(bytes.NewReader(data), abort)
	if err != nil {
		return fmt.Errorf("scan stream: %w", err)
	}
	for result := range results {
		if result.Status != clamd.RES_OK {
			return ErrMaliciousFile
		}
	}
	return nil
}
