package source

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// propfindBody requests exactly the properties listings need. Asking for
// allprop makes some servers return kilobytes of lock metadata per entry.
const propfindBody = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:">
  <d:prop>
    <d:displayname/>
    <d:getcontentlength/>
    <d:getlastmodified/>
    <d:resourcetype/>
  </d:prop>
</d:propfind>`

// maxAuthAttempts caps how many times a challenged request is replayed with
// credentials before giving up.
const maxAuthAttempts = 3

// WebDAVOptions tunes the HTTP behavior of a WebDAV source.
type WebDAVOptions struct {
	Timeout           time.Duration
	RequestsPerSecond float64
}

// DefaultWebDAVOptions returns the limits used when nothing is configured.
func DefaultWebDAVOptions() WebDAVOptions {
	return WebDAVOptions{Timeout: 30 * time.Second, RequestsPerSecond: 4}
}

// webdavSource talks to a WebDAV server. Paths handed to List, ResolveURI
// and ReadText are absolute URLs; the first listing starts at Config.Root.
//
// Credentials are only ever attached to requests addressed at the host they
// were configured for, and only after the server challenges.
type webdavSource struct {
	client   *http.Client
	limiter  *rate.Limiter
	username string
	password string
	authHost string
	logger   *log.Logger
}

// NewWebDAV creates a WebDAV source rooted at rawURL with the given
// credentials and limits. Credentials are scoped to rawURL's host.
func NewWebDAV(rawURL, username, password string, opts WebDAVOptions, logger *log.Logger) Source {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultWebDAVOptions().Timeout
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultWebDAVOptions().RequestsPerSecond
	}

	authHost := ""
	if u, err := url.Parse(rawURL); err == nil {
		authHost = u.Host
	}

	s := &webdavSource{
		limiter:  rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		username: username,
		password: password,
		authHost: authHost,
		logger:   logger,
	}
	s.client = &http.Client{
		Timeout: opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Credentials must not follow a redirect off the original host.
			if len(via) > 0 && req.URL.Host != via[0].URL.Host {
				req.Header.Del("Authorization")
			}
			return nil
		},
	}
	return s
}

func (s *webdavSource) List(ctx context.Context, path string) []Entry {
	resp, err := s.do(ctx, "PROPFIND", path, propfindBody)
	if err != nil {
		s.logger.Warn("listing failed", "url", path, "error", err)
		return []Entry{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMultiStatus && resp.StatusCode != http.StatusOK {
		s.logger.Warn("listing rejected", "url", path, "status", resp.StatusCode)
		return []Entry{}
	}

	entries, err := parseMultiStatus(resp.Body, resp.Request.URL)
	if err != nil {
		s.logger.Warn("listing unparseable", "url", path, "error", err)
		return []Entry{}
	}
	return entries
}

// ResolveURI embeds the configured credentials as userinfo so the URI is
// playable by an external player without extra headers.
func (s *webdavSource) ResolveURI(path string) string {
	if s.username == "" {
		return path
	}
	u, err := url.Parse(path)
	if err != nil {
		return path
	}
	if s.authHost != "" && u.Host != s.authHost {
		return path
	}
	u.User = url.UserPassword(s.username, s.password)
	return u.String()
}

func (s *webdavSource) ReadText(ctx context.Context, path string) (string, bool) {
	resp, err := s.do(ctx, http.MethodGet, path, "")
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// do issues one rate-limited request, replaying with Basic credentials when
// the original host challenges.
func (s *webdavSource) do(ctx context.Context, method, rawURL, body string) (*http.Response, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	authorized := false
	for attempt := 1; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, rawURL, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		if method == "PROPFIND" {
			req.Header.Set("Depth", "1")
			req.Header.Set("Content-Type", `application/xml; charset="utf-8"`)
		}
		if authorized {
			req.SetBasicAuth(s.username, s.password)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusUnauthorized {
			return resp, nil
		}
		if authorized && attempt >= maxAuthAttempts {
			return resp, nil
		}
		if s.username == "" || target.Host != s.authHost {
			return resp, nil
		}
		resp.Body.Close()
		authorized = true
	}
}

type multiStatus struct {
	XMLName   xml.Name      `xml:"multistatus"`
	Responses []davResponse `xml:"response"`
}

type davResponse struct {
	Href      string        `xml:"href"`
	Propstats []davPropstat `xml:"propstat"`
}

type davPropstat struct {
	Prop davProp `xml:"prop"`
}

type davProp struct {
	DisplayName   string          `xml:"displayname"`
	ContentLength string          `xml:"getcontentlength"`
	LastModified  string          `xml:"getlastmodified"`
	ResourceType  davResourceType `xml:"resourcetype"`
}

type davResourceType struct {
	Collection *struct{} `xml:"collection"`
}

// parseMultiStatus converts a 207 body into entries, dropping the response
// that describes the listed collection itself.
func parseMultiStatus(r io.Reader, requested *url.URL) ([]Entry, error) {
	var ms multiStatus
	if err := xml.NewDecoder(r).Decode(&ms); err != nil {
		return nil, err
	}

	selfPath := normalizePath(requested.Path)
	entries := make([]Entry, 0, len(ms.Responses))

	for _, resp := range ms.Responses {
		href, err := url.Parse(strings.TrimSpace(resp.Href))
		if err != nil {
			continue
		}
		if normalizePath(href.Path) == selfPath {
			continue
		}

		var prop davProp
		for _, ps := range resp.Propstats {
			if ps.Prop.DisplayName != "" || ps.Prop.ContentLength != "" ||
				ps.Prop.LastModified != "" || ps.Prop.ResourceType.Collection != nil {
				prop = ps.Prop
				break
			}
		}

		name := strings.TrimSpace(prop.DisplayName)
		if name == "" {
			name = BaseName(href.Path)
		}

		size, _ := strconv.ParseInt(strings.TrimSpace(prop.ContentLength), 10, 64)

		var modTime int64
		if parsed, err := time.Parse(time.RFC1123, strings.TrimSpace(prop.LastModified)); err == nil {
			modTime = parsed.UnixMilli()
		}

		entries = append(entries, Entry{
			Name:    name,
			Path:    requested.ResolveReference(href).String(),
			IsDir:   prop.ResourceType.Collection != nil,
			Size:    size,
			ModTime: modTime,
		})
	}
	return entries, nil
}

// normalizePath decodes, trims the trailing slash, and case-folds a URL path
// so hrefs compare equal regardless of how the server spells them.
func normalizePath(p string) string {
	if decoded, err := url.PathUnescape(p); err == nil {
		p = decoded
	}
	return strings.ToLower(strings.TrimRight(p, "/"))
}
