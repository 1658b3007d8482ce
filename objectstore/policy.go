package objectstore

import "encoding/json"

// bucketPolicy builds the bucket policy JSON granting anonymous read on
// objects. When origin is set, reads are additionally restricted to requests
// carrying that referer; this is advisory (referers are spoofable) but keeps
// casual hot-linking out.
func bucketPolicy(bucket, origin string) string {
	statement := map[string]any{
		"Effect":    "Allow",
		"Principal": map[string]any{"AWS": []string{"*"}},
		"Action":    []string{"s3:GetObject"},
		"Resource":  []string{"arn:aws:s3:::" + bucket + "/*"},
	}
	if origin != "" {
		statement["Condition"] = map[string]any{
			"StringLike": map[string]any{
				"aws:Referer": []string{origin + "/*"},
			},
		}
	}

	doc := map[string]any{
		"Version":   "2012-10-17",
		"Statement": []any{statement},
	}

	raw, _ := json.Marshal(doc)
	return string(raw)
}
