package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyJobID       = "job_id"
	KeyEvent       = "event"
	KeyJobStatus   = "job_status"
	KeyBuildStatus = "build_status"
	KeyExecutionID = "execution_id"
	KeyRepo        = "repo_url"
	KeyBranch      = "branch"
	KeyURL         = "url"
	KeyMethod      = "method"
	KeyPath        = "path"
	KeyStatus      = "status"
	KeyCount       = "count"
	KeyError       = "error"
	KeyUserAgent   = "user_agent"
	KeyRemoteAddr  = "remote_addr"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func JobID(id string) slog.Attr        { return slog.String(KeyJobID, id) }
func Event(e string) slog.Attr         { return slog.String(KeyEvent, e) }
func JobStatus(s string) slog.Attr     { return slog.String(KeyJobStatus, s) }
func BuildStatus(s string) slog.Attr   { return slog.String(KeyBuildStatus, s) }
func ExecutionID(id string) slog.Attr  { return slog.String(KeyExecutionID, id) }
func Repo(u string) slog.Attr          { return slog.String(KeyRepo, u) }
func Branch(b string) slog.Attr        { return slog.String(KeyBranch, b) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func UserAgent(ua string) slog.Attr    { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
