package internal

import (
	"net/url"

	"github.com/nettide/httpc/internal/errs"
	"github.com/nettide/httpc/internal/http"
)

func isRedirect(status int) bool {
	switch status {
	case 301, 302, 303, 307, 308:
		return true
	default:
		return false
	}
}

// redirectedRequest derives the next request of a redirect chain. 301/302
// and 303 rewrite to GET and drop the body; 307/308 preserve method and
// body, which therefore must be replayable. Credentials never cross hosts.
func redirectedRequest(prev *PreparedRequest, resp *http.Response) (*PreparedRequest, error) {
	location := resp.Header.Get("Location")
	if location == "" {
		return nil, errs.Msg(errs.Redirect, "redirect response missing Location")
	}
	ref, err := url.Parse(location)
	if err != nil {
		return nil, errs.New(errs.Redirect, err)
	}
	target := prev.U.ResolveReference(ref)
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, errs.Newf(errs.Redirect, "refusing redirect to scheme %q", target.Scheme)
	}

	method, body := prev.Method, prev.Request.Body
	switch resp.StatusCode {
	case 301, 302, 303:
		if method != "HEAD" {
			method = "GET"
		}
		body = nil
	default: // 307, 308 replay the original body
		if !prev.Request.BodyReplayable() {
			return nil, errs.Msg(errs.Redirect, "cannot replay request body across redirect")
		}
	}

	header := prev.Request.Header.Clone()
	if target.Host != prev.U.Host && header != nil {
		header.Del("Authorization")
		header.Del("Cookie")
		header.Del("Proxy-Authorization")
	}

	next := &http.Request{
		Method: method,
		URL:    target.String(),
		Body:   body,
		Header: header,
	}
	return next.Prepare()
}
