package email

import (
	"bytes"
	"embed"
	"html/template"
	texttpl "text/template"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

type Templates struct {
	VerifyHTML *template.Template
	VerifyTXT  *texttpl.Template
	ResetHTML  *template.Template
	ResetTXT   *texttpl.Template
}

// VerifyVars alimenta los templates de verificación de email.
type VerifyVars struct {
	Name string
	Link string
	TTL  string
}

// ResetVars alimenta los templates de reset de password.
type ResetVars struct {
	Name string
	Link string
	TTL  string
}

// LoadTemplates parsea los templates embebidos.
func LoadTemplates() (*Templates, error) {
	read := func(name string) (string, error) {
		b, err := templateFS.ReadFile("templates/" + name)
		return string(b), err
	}

	vh, err := read("verify_email.html")
	if err != nil {
		return nil, err
	}
	vt, err := read("verify_email.txt")
	if err != nil {
		return nil, err
	}
	rh, err := read("reset_password.html")
	if err != nil {
		return nil, err
	}
	rt, err := read("reset_password.txt")
	if err != nil {
		return nil, err
	}

	vhT, err := template.New("verify_html").Parse(vh)
	if err != nil {
		return nil, err
	}
	vtT, err := texttpl.New("verify_txt").Parse(vt)
	if err != nil {
		return nil, err
	}
	rhT, err := template.New("reset_html").Parse(rh)
	if err != nil {
		return nil, err
	}
	rtT, err := texttpl.New("reset_txt").Parse(rt)
	if err != nil {
		return nil, err
	}

	return &Templates{vhT, vtT, rhT, rtT}, nil
}

// RenderVerify devuelve (html, txt) del mail de verificación.
func (t *Templates) RenderVerify(v VerifyVars) (string, string, error) {
	var html, txt bytes.Buffer
	if err := t.VerifyHTML.Execute(&html, v); err != nil {
		return "", "", err
	}
	if err := t.VerifyTXT.Execute(&txt, v); err != nil {
		return "", "", err
	}
	return html.String(), txt.String(), nil
}

// RenderReset devuelve (html, txt) del mail de reset.
func (t *Templates) RenderReset(v ResetVars) (string, string, error) {
	var html, txt bytes.Buffer
	if err := t.ResetHTML.Execute(&html, v); err != nil {
		return "", "", err
	}
	if err := t.ResetTXT.Execute(&txt, v); err != nil {
		return "", "", err
	}
	return html.String(), txt.String(), nil
}
