package proxy

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

// Config describes the reverse-proxy tier: static assets served from a root
// directory (optionally with a single-page-application fallback) and
// path-prefix routes forwarded to other services by their stack name.
type Config struct {
	Listen      int     `mapstructure:"listen" yaml:"listen,omitempty"`
	StaticRoot  string  `mapstructure:"static_root" yaml:"static_root,omitempty"`
	SPAFallback bool    `mapstructure:"spa_fallback" yaml:"spa_fallback,omitempty"`
	Routes      []Route `mapstructure:"routes" yaml:"routes,omitempty"`
}

// Route forwards requests under Prefix to Upstream ("service:port"). Name
// resolution of the service is left to the stack network.
type Route struct {
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
	Upstream string `mapstructure:"upstream" yaml:"upstream"`
}

const (
	defaultListen     = 80
	defaultStaticRoot = "/usr/share/nginx/html"

	// DefaultConfPath is where the rendered server block lands inside the
	// nginx image.
	DefaultConfPath = "/etc/nginx/conf.d/default.conf"
)

// UpstreamService splits the route's upstream into service name and port.
func (r Route) UpstreamService() (string, int, error) {
	host, portStr, found := strings.Cut(r.Upstream, ":")
	if !found || host == "" {
		return "", 0, fmt.Errorf("invalid upstream %q, expected format: <service>:<port>", r.Upstream)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid upstream port in %q", r.Upstream)
	}
	return host, port, nil
}

// Upstreams returns the service names referenced by the routes. Invalid
// upstream strings are skipped here; Render and validation report them.
func (c Config) Upstreams() []string {
	names := make([]string, 0, len(c.Routes))
	for _, route := range c.Routes {
		if svc, _, err := route.UpstreamService(); err == nil {
			names = append(names, svc)
		}
	}
	return names
}

var nginxTemplate = template.Must(template.New("nginx").Parse(`server {
    listen {{ .Listen }};
    server_name _;

    root {{ .StaticRoot }};
    index index.html;

    location / {
{{- if .SPAFallback }}
        try_files $uri $uri/ /index.html;
{{- else }}
        try_files $uri $uri/ =404;
{{- end }}
    }
{{ range .Routes }}
    location {{ .Prefix }} {
        proxy_pass http://{{ .Upstream }}/;
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
    }
{{ end -}}
}
`))

// Render produces the nginx server block for this config.
func (c Config) Render() (string, error) {
	if c.Listen == 0 {
		c.Listen = defaultListen
	}
	if c.StaticRoot == "" {
		c.StaticRoot = defaultStaticRoot
	}

	for _, route := range c.Routes {
		if !strings.HasPrefix(route.Prefix, "/") {
			return "", fmt.Errorf("route prefix %q must start with '/'", route.Prefix)
		}
		if _, _, err := route.UpstreamService(); err != nil {
			return "", fmt.Errorf("route %q: %w", route.Prefix, err)
		}
	}

	var b strings.Builder
	if err := nginxTemplate.Execute(&b, c); err != nil {
		return "", fmt.Errorf("rendering nginx config: %w", err)
	}

	return b.String(), nil
}
