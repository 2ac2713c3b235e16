package cmd

const DESCRIPTION = `
cookieshare moves the cookies of a site between machines through a relay.
Cookies are kept locally in encrypted jars, pushed to the relay under a
short id and pulled back into a jar anywhere else.
`

const (
	SendDescription = `The send command uploads the jar of a host to the relay
under a short id and saves the id in your list. An id is
generated when none is given.

Example:
        cookieshare send --host example.com https://relay.example.com
        cookieshare send --host example.com --id myid

`
	ReceiveDescription = `The receive command downloads the cookies stored under an
id and replaces the jar of the host with them. Cookies named
in the protected list are left alone. The host defaults to
the site the id was saved for.

Example:
        cookieshare receive abc123XYZ0
        cookieshare receive --host example.com abc123XYZ0 https://relay.example.com

`
	ListDescription = `The list command asks the configured relay which cookie
sets it holds for a host.

Example:
        cookieshare list --host example.com

`
	SavedDescription = `The saved command manages your list of cookie set ids.

Example:
        cookieshare saved list
        cookieshare saved note abc123XYZ0 "work laptop"
        cookieshare saved mv 3 1

`
	ServerDescription = `The server command shows or changes the relay used when
no relay is given on the command line.

Example:
        cookieshare server set --remember --password secret relay.example.com
        cookieshare server show

`
	JarDescription = `The jar command manages the local encrypted cookie jars.
Cookies can be captured from a Firefox or Chrome profile
database or a Netscape cookies.txt file, and exported in
the Netscape format.

Example:
        cookieshare jar capture --host example.com ~/.mozilla/firefox/x.default/cookies.sqlite
        cookieshare jar export --host example.com cookies.txt

`
	NativeDescription = `The native command connects cookieshare to the browser
extension through native messaging.

Example:
        cookieshare native install --browser firefox --firefox-extension-id cookieshare@example.com

`
)

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}{{if .VisibleFlags}}

Global Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`
