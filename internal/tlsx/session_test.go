package tlsx

import (
	"net/netip"
)

// scriptSession replays a scripted sequence of engine results, standing in
// for a native engine that can actually suspend mid-handshake.
type scriptSession struct {
	connects []scriptResult
	reads    []scriptResult
	writes   []scriptResult

	verifyHost string
	verifyIP   netip.Addr
	verify     VerifyResult
	failure    error

	closes int
}

type scriptResult struct {
	ret  int
	code Code
}

func (s *scriptSession) SetVerifyHost(host string) error {
	s.verifyHost = host
	return nil
}

func (s *scriptSession) SetVerifyIP(ip netip.Addr) error {
	s.verifyIP = ip
	return nil
}

func (s *scriptSession) Connect() (int, Code) {
	r := s.connects[0]
	if len(s.connects) > 1 {
		s.connects = s.connects[1:]
	}
	return r.ret, r.code
}

func (s *scriptSession) Read(p []byte) (int, Code) {
	r := s.reads[0]
	if len(s.reads) > 1 {
		s.reads = s.reads[1:]
	}
	if r.ret > 0 {
		for i := 0; i < r.ret && i < len(p); i++ {
			p[i] = 'x'
		}
	}
	return r.ret, r.code
}

func (s *scriptSession) Write(p []byte) (int, Code) {
	r := s.writes[0]
	if len(s.writes) > 1 {
		s.writes = s.writes[1:]
	}
	return r.ret, r.code
}

func (s *scriptSession) VerifyResult() VerifyResult { return s.verify }

func (s *scriptSession) FailureCause() error { return s.failure }

func (s *scriptSession) Close() error {
	s.closes++
	return nil
}
