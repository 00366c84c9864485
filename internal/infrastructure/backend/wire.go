package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexBool accepts true/false as well as "success"/"true" style strings.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "success", "ok", "true", "updated":
			*f = true
		default:
			*f = false
		}
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*f = false
		return nil
	}
	v, err := strconv.ParseBool(string(b))
	if err != nil {
		return err
	}
	*f = flexBool(v)
	return nil
}

type searchResponse struct {
	Results []struct {
		ImageURL   string  `json:"image_url"`
		Similarity float64 `json:"similarity"`
		Filename   string  `json:"filename"`
	} `json:"results"`
}

type statusResponse struct {
	Status  flexBool `json:"status"`
	Message string   `json:"message"`
}

type videoURLResponse struct {
	VideoURL string     `json:"video_url"`
	Cached   bool       `json:"cached"`
	AdaNo    flexString `json:"ada_no"`
}

type videoSubmitResponse struct {
	Status       string     `json:"status"`
	JobID        flexString `json:"job_id"`
	MobileNumber flexString `json:"mobile_number"`
	Message      string     `json:"message"`
}

type verifyResponse struct {
	Status  string     `json:"status"`
	JobID   flexString `json:"job_id"`
	Message string     `json:"message"`
}

type photoCheckResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

type verifyRequest struct {
	MobileNumber string `json:"mobile_number"`
	OTP          string `json:"otp"`
}

type resendRequest struct {
	MobileNumber string `json:"mobile_number"`
}
