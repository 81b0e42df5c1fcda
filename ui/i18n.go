package ui

import (
	"os"
	"strings"
)

// Messages holds the user visible strings of the terminal UI.
type Messages struct {
	Title            string
	Description      string
	Start            string
	Starting         string
	Running          string
	Waiting          string
	Done             string
	Failed           string
	Stopped          string
	InputPlaceholder string
	LastRun          string
	Never            string
	Copied           string
	Follow           string
}

const fallbackLocale = "en"

var catalog = map[string]Messages{
	"en": {
		Title:            "Topgrade GUI",
		Description:      "Upgrade every package manager on this system with topgrade. Passwords and confirmations asked along the way are answered here.",
		Start:            "Start upgrade",
		Starting:         "Starting...",
		Running:          "Running...",
		Waiting:          "Waiting for input",
		Done:             "Done",
		Failed:           "Failed",
		Stopped:          "Stopped",
		InputPlaceholder: "Type here and press Enter to send it to the command",
		LastRun:          "Last run",
		Never:            "never",
		Copied:           "Log copied to clipboard",
		Follow:           "scrolled, ctrl+e to follow",
	},
	"pt": {
		Title:            "Topgrade GUI",
		Description:      "Atualize todos os gerenciadores de pacotes deste sistema com o topgrade. Senhas e confirmações pedidas durante a atualização são respondidas aqui.",
		Start:            "Iniciar atualização",
		Starting:         "Iniciando...",
		Running:          "Executando...",
		Waiting:          "Aguardando resposta",
		Done:             "Concluído",
		Failed:           "Falhou",
		Stopped:          "Interrompido",
		InputPlaceholder: "Digite aqui e pressione Enter para enviar ao comando",
		LastRun:          "Última execução",
		Never:            "nunca",
		Copied:           "Log copiado para a área de transferência",
		Follow:           "rolagem manual, ctrl+e para acompanhar",
	},
}

// DetectLocale returns the normalised locale of the environment, e.g. "pt_BR".
func DetectLocale() string {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(name); v != "" && v != "C" && v != "POSIX" {
			return NormalizeLocale(v)
		}
	}
	return fallbackLocale
}

// NormalizeLocale drops the encoding and modifier and uses '_' as separator,
// so "pt-BR.UTF-8" becomes "pt_BR".
func NormalizeLocale(locale string) string {
	locale, _, _ = strings.Cut(locale, ".")
	locale, _, _ = strings.Cut(locale, "@")
	return strings.ReplaceAll(locale, "-", "_")
}

// MessagesFor returns the strings for locale, falling back to its language and then
// to English.
func MessagesFor(locale string) Messages {
	if m, ok := catalog[locale]; ok {
		return m
	}
	lang, _, _ := strings.Cut(locale, "_")
	if m, ok := catalog[strings.ToLower(lang)]; ok {
		return m
	}
	return catalog[fallbackLocale]
}
