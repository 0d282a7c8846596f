package core_test

import (
	"net/mail"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/matokeo/core"
	appfs "github.com/trezcool/matokeo/fs"
	logsvc "github.com/trezcool/matokeo/services/logger"
)

func TestEmailMessageRender(t *testing.T) {
	conf := core.NewTestConfig()
	logger := logsvc.NewDiscardLogger()
	t.Cleanup(func() { core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger) })

	core.ParseEmailTemplates(fstest.MapFS{
		"email/_base.txt":      {Data: []byte(`{{template "content" .}} - {{.AppName}}`)},
		"email/_base.gohtml":   {Data: []byte(`<p>{{template "content" .}}</p>`)},
		"email/welcome.txt":    {Data: []byte(`{{define "content"}}Hi {{.Data.Name}}{{end}}`)},
		"email/welcome.gohtml": {Data: []byte(`{{define "content"}}Hi <b>{{.Data.Name}}</b>{{end}}`)},
	}, "email", conf, logger)

	to := []mail.Address{{Address: "amani@school.test"}}

	msg := &core.EmailMessage{To: to, TemplateName: "welcome", TemplateData: map[string]string{"Name": "Amani"}}
	require.NoError(t, msg.Render(conf))
	assert.Equal(t, "Hi Amani - "+conf.AppName, msg.TextContent)
	assert.Equal(t, "<p>Hi <b>Amani</b></p>", msg.HTMLContent)

	plain := &core.EmailMessage{To: to, BodyStr: "plain"}
	require.NoError(t, plain.Render(conf))
	assert.Equal(t, "plain", plain.TextContent)

	unknown := &core.EmailMessage{To: to, TemplateName: "unknown"}
	assert.EqualError(t, unknown.Render(conf), `email template "unknown" not found`)
}
