package dayli

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Backend identifies which store holds the bytes behind a reference.
type Backend string

const (
	BackendRemote Backend = "remote"
	BackendLocal  Backend = "local"
)

// LocalScheme prefixes references served by the local fallback store.
const LocalScheme = "local://"

// Reference is the parsed form of a stored-object reference. The reference
// string alone determines the resolving backend; no separate flag is
// persisted anywhere else.
type Reference struct {
	Backend Backend
	// Bucket and Key are set for remote references.
	Bucket string
	Key    string
	// LocalID is set for local references.
	LocalID string

	raw string
}

func (r Reference) String() string {
	return r.raw
}

// ParseReference classifies a reference string by shape. Remote references
// are http(s) URLs with the bucket as the first path segment (path-style
// addressing); local references use the local:// scheme.
func ParseReference(ref string) (Reference, error) {
	if ref == "" {
		return Reference{}, fmt.Errorf("empty reference: %w", ErrInvalidInput)
	}

	if id, ok := strings.CutPrefix(ref, LocalScheme); ok {
		if id == "" {
			return Reference{}, fmt.Errorf("local reference missing id: %w", ErrInvalidInput)
		}
		return Reference{Backend: BackendLocal, LocalID: id, raw: ref}, nil
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Reference{}, fmt.Errorf("unrecognized reference shape: %s: %w", ref, ErrInvalidInput)
	}

	bucket, key, found := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if !found || bucket == "" || key == "" {
		return Reference{}, fmt.Errorf("remote reference missing bucket or key: %s: %w", ref, ErrInvalidInput)
	}

	return Reference{Backend: BackendRemote, Bucket: bucket, Key: key, raw: ref}, nil
}

// LocalReference builds a local:// reference for a fallback-store id.
func LocalReference(id string) string {
	return LocalScheme + id
}

// unsafeNameChars matches characters stripped from original filenames before
// they become part of an object key.
var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// SanitizeFilename reduces an original filename to a safe key segment: the
// base name only, whitespace collapsed to underscores, traversal sequences
// and unsafe characters removed.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Join(strings.Fields(name), "_")
	name = strings.ReplaceAll(name, "..", "")
	name = unsafeNameChars.ReplaceAllString(name, "_")
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// BuildObjectKey constructs the storage key for a new upload:
// {uploadType}/{ownerID}/{unixMillis}_{random}_{sanitizedName}. The
// timestamp plus random disambiguator guarantees two uploads never share a
// key, so concurrent uploads need no coordination. The owner id segment is
// defense in depth only; authorization always reads the object metadata.
func BuildObjectKey(uploadType UploadType, ownerID, filename string, now time.Time) (string, error) {
	if !uploadType.IsValid() {
		return "", fmt.Errorf("build object key: %w: bad upload type %q", ErrInvalidInput, uploadType)
	}
	if ownerID == "" {
		return "", fmt.Errorf("build object key: %w: owner id cannot be empty", ErrInvalidInput)
	}

	name := SanitizeFilename(filename)
	if name == "" {
		name = "file"
	}

	disambiguator := strings.Split(uuid.NewString(), "-")[0]
	key := fmt.Sprintf("%s/%s/%s_%s_%s",
		uploadType,
		SanitizeFilename(ownerID),
		strconv.FormatInt(now.UnixMilli(), 10),
		disambiguator,
		name,
	)

	if !IsValidKey(key) {
		return "", fmt.Errorf("build object key: produced invalid key %q: %w", key, ErrInvalidInput)
	}
	return key, nil
}

// IsValidKey validates that a string meets the requirements for an object
// key. It checks that the key:
//   - is not empty, ".", or "/"
//   - is relative (does not start with "/")
//   - does not end with "/"
//   - does not contain ".." (path traversal)
//   - does not contain "//" (empty segments)
//   - does not contain invalid characters: \ ? # ~
//   - is valid UTF-8
//   - does not contain "." segments
//   - does not contain null bytes, control characters, DEL, or whitespace
func IsValidKey(k string) bool {
	if k == "" || k == "/" || k == "." {
		return false
	}

	if k[0] == '/' {
		return false
	}

	if strings.HasSuffix(k, "/") {
		return false
	}

	if strings.Contains(k, "..") {
		return false
	}

	if strings.Contains(k, "//") {
		return false
	}

	if strings.ContainsAny(k, `\?#~`) {
		return false
	}

	if !utf8.ValidString(k) {
		return false
	}

	if strings.Contains(k, "/./") || strings.HasSuffix(k, "/.") {
		return false
	}

	for _, r := range k {
		if r == 0 || r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

// KeyFromPath resolves an object key from a client-supplied file path, which
// may or may not include a leading slash and the bucket segment. Mirrors the
// URL shapes the router hands out.
func KeyFromPath(filePath, bucket string) (string, error) {
	p := strings.TrimPrefix(filePath, "/")
	if rest, ok := strings.CutPrefix(p, bucket+"/"); ok {
		p = rest
	}
	if p == "" || !IsValidKey(p) {
		return "", fmt.Errorf("invalid file path %q: %w", filePath, ErrInvalidInput)
	}
	return p, nil
}
