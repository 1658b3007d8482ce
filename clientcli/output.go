package clientcli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Formatter formats results for output.
type Formatter interface {
	FormatUpload(w io.Writer, results []UploadResult) error
	FormatDelete(w io.Writer, results []DeleteResult) error
	FormatImage(w io.Writer, img *Image, savedTo string) error
	FormatError(w io.Writer, err error) error
	FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error
	FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

// FormatUpload formats upload results as human-readable text.
func (f *HumanFormatter) FormatUpload(w io.Writer, results []UploadResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.LocalPath, r.Err)
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Uploaded: %s (%s)\n", r.Key, formatSize(r.Size))
			_, _ = fmt.Fprintf(w, "  URL: %s\n", r.PublicURL)
		}
	}
	return nil
}

// FormatDelete formats delete results as human-readable text.
func (f *HumanFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.Path, r.Err)
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Deleted: %s\n", r.Path)
		}
	}
	return nil
}

// FormatImage formats an image fetch result as human-readable text.
func (f *HumanFormatter) FormatImage(w io.Writer, img *Image, savedTo string) error {
	if !f.Quiet {
		if savedTo == "-" {
			_, _ = fmt.Fprintf(w, "Fetched: %s (%s)\n", img.Filename, formatSize(img.Size))
		} else {
			_, _ = fmt.Fprintf(w, "Fetched: %s -> %s (%s)\n", img.Filename, savedTo, formatSize(img.Size))
		}
		_, _ = fmt.Fprintf(w, "  Type: %s\n", img.Mimetype)
	}
	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

// FormatUpload formats upload results as JSON.
func (f *JSONFormatter) FormatUpload(w io.Writer, results []UploadResult) error {
	type jsonResult struct {
		LocalPath   string `json:"local_path"`
		Key         string `json:"key,omitempty"`
		PublicURL   string `json:"public_url,omitempty"`
		ContentType string `json:"content_type,omitempty"`
		Size        int64  `json:"size_bytes,omitempty"`
		Error       string `json:"error,omitempty"`
	}

	output := make([]jsonResult, len(results))
	for i := range results {
		r := &results[i]
		jr := jsonResult{
			LocalPath: r.LocalPath,
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		} else {
			jr.Key = r.Key
			jr.PublicURL = r.PublicURL
			jr.ContentType = r.ContentType
			jr.Size = r.Size
		}
		output[i] = jr
	}

	return writeJSON(w, output)
}

// FormatDelete formats delete results as JSON.
func (f *JSONFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	type jsonResult struct {
		Path    string `json:"path"`
		Deleted bool   `json:"deleted"`
		Error   string `json:"error,omitempty"`
	}

	output := struct {
		Results []jsonResult `json:"results"`
	}{
		Results: make([]jsonResult, len(results)),
	}

	for i, r := range results {
		jr := jsonResult{
			Path:    r.Path,
			Deleted: r.Deleted,
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		output.Results[i] = jr
	}

	return writeJSON(w, output)
}

// FormatImage formats an image fetch result as JSON. The data URI itself is
// omitted; it goes to the output file.
func (f *JSONFormatter) FormatImage(w io.Writer, img *Image, savedTo string) error {
	output := struct {
		Filename string `json:"filename"`
		Mimetype string `json:"mimetype"`
		Size     int64  `json:"size"`
		SavedTo  string `json:"saved_to,omitempty"`
	}{
		Filename: img.Filename,
		Mimetype: img.Mimetype,
		Size:     img.Size,
		SavedTo:  savedTo,
	}
	return writeJSON(w, output)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	}
	return writeJSON(w, output)
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatProfileList formats a list of profiles as human-readable text.
func (f *HumanFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	maxNameLen := 4     // "NAME"
	maxEndpointLen := 8 // "ENDPOINT"
	for i := range profiles {
		if len(profiles[i].Name) > maxNameLen {
			maxNameLen = len(profiles[i].Name)
		}
		if len(profiles[i].Endpoint) > maxEndpointLen {
			maxEndpointLen = len(profiles[i].Endpoint)
		}
	}
	if maxNameLen > 20 {
		maxNameLen = 20
	}
	if maxEndpointLen > 50 {
		maxEndpointLen = 50
	}

	_, _ = fmt.Fprintf(w, "  %-*s  %-*s  %-12s  %s\n", maxNameLen, "NAME", maxEndpointLen, "ENDPOINT", "USER", "TOKEN")
	_, _ = fmt.Fprintf(w, "  %s  %s  %s  %s\n", strings.Repeat("-", maxNameLen), strings.Repeat("-", maxEndpointLen), strings.Repeat("-", 12), strings.Repeat("-", 15))

	for i := range profiles {
		p := &profiles[i]
		marker := " "
		if p.Name == defaultName {
			marker = "*"
		}

		name := p.Name
		if len(name) > maxNameLen {
			name = name[:maxNameLen-3] + "..."
		}

		endpoint := p.Endpoint
		if len(endpoint) > maxEndpointLen {
			endpoint = endpoint[:maxEndpointLen-3] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s %-*s  %-*s  %-12s  %s\n", marker, maxNameLen, name, maxEndpointLen, endpoint, p.UserID, maskSecret(p.Token, showSecrets))
	}

	return nil
}

// FormatProfileShow formats a single profile as human-readable text.
func (f *HumanFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	_, _ = fmt.Fprintf(w, "Name:     %s", profile.Name)
	if isDefault {
		_, _ = fmt.Fprintf(w, " (default)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Endpoint: %s\n", profile.Endpoint)
	_, _ = fmt.Fprintf(w, "User ID:  %s\n", profile.UserID)
	_, _ = fmt.Fprintf(w, "Token:    %s\n", maskSecret(profile.Token, showSecrets))
	return nil
}

// FormatProfileList formats a list of profiles as JSON.
func (f *JSONFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	type jsonProfile struct {
		Name     string `json:"name"`
		Endpoint string `json:"endpoint"`
		UserID   string `json:"user_id,omitempty"`
		Token    string `json:"token,omitempty"`
		Default  bool   `json:"default,omitempty"`
	}

	output := struct {
		Profiles []jsonProfile `json:"profiles"`
	}{
		Profiles: make([]jsonProfile, len(profiles)),
	}

	for i := range profiles {
		p := &profiles[i]
		output.Profiles[i] = jsonProfile{
			Name:     p.Name,
			Endpoint: p.Endpoint,
			UserID:   p.UserID,
			Token:    maskSecret(p.Token, showSecrets),
			Default:  p.Name == defaultName,
		}
	}

	return writeJSON(w, output)
}

// FormatProfileShow formats a single profile as JSON.
func (f *JSONFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	output := struct {
		Name     string `json:"name"`
		Endpoint string `json:"endpoint"`
		UserID   string `json:"user_id"`
		Token    string `json:"token"`
		Default  bool   `json:"default"`
	}{
		Name:     profile.Name,
		Endpoint: profile.Endpoint,
		UserID:   profile.UserID,
		Token:    maskSecret(profile.Token, showSecrets),
		Default:  isDefault,
	}

	return writeJSON(w, output)
}

// maskSecret masks a secret string, showing only first 4 and last 4 characters.
// If showSecrets is true, returns the original value.
// If the secret is too short, returns all asterisks.
func maskSecret(secret string, showSecrets bool) string {
	if showSecrets {
		return secret
	}
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
