package api

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// maxModerationBodySize leaves room for a data URL at maxDataURLLength.
const maxModerationBodySize = 5 << 20

// errorEnvelope is the standard error response shape.
type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeError writes a JSON error response with the given status code.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorEnvelope{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeFieldError writes a 422 validation error naming the offending field.
func writeFieldError(w http.ResponseWriter, field, message string) {
	writeJSON(w, http.StatusUnprocessableEntity, errorEnvelope{
		Error: errorDetail{
			Code:    "validation_error",
			Message: message,
			Field:   field,
		},
	})
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// readJSON decodes the request body into v, enforcing a size limit.
func readJSON(r *http.Request, v interface{}) error {
	lr := io.LimitReader(r.Body, maxBodySize)
	return json.NewDecoder(lr).Decode(v)
}

func isJSONRequest(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// wantsJSON reports whether the client asked for a JSON response rather than
// a redirect.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// readFields reads a JSON object, a urlencoded form or a multipart form into
// a single field map. JSON scalars are rendered as strings and JSON arrays
// become repeated values, so both encodings share one validation path.
func readFields(w http.ResponseWriter, r *http.Request) (map[string][]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if isJSONRequest(r) {
		var raw map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		fields := make(map[string][]string, len(raw))
		for k, v := range raw {
			switch val := v.(type) {
			case []any:
				for _, item := range val {
					if s, ok := scalarString(item); ok {
						fields[k] = append(fields[k], s)
					}
				}
			default:
				if s, ok := scalarString(val); ok {
					fields[k] = []string{s}
				}
			}
		}
		return fields, nil
	}

	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxBodySize); err != nil {
			return nil, err
		}
		return r.MultipartForm.Value, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return r.PostForm, nil
}

func scalarString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case bool:
		if val {
			return "true", true
		}
		return "false", true
	case map[string]any:
		// Photo references arrive as objects; forms carry them as JSON text.
		b, err := json.Marshal(val)
		return string(b), err == nil
	default:
		return "", false
	}
}

func first(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// redirectOrJSON completes a successful form action: a 303 to target for
// browsers, or status with {"redirect": target} for JSON clients.
func redirectOrJSON(w http.ResponseWriter, r *http.Request, status int, target string) {
	if wantsJSON(r) {
		writeJSON(w, status, map[string]string{"redirect": target})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
