// Package i18n translates error and validation codes returned by the API.
// French is the default language; English is the only other one.
package i18n

import (
	"context"
	"strings"
)

const (
	LangFR      = "fr"
	LangEN      = "en"
	DefaultLang = LangFR
)

var messages = map[string]map[string]string{
	LangFR: {
		// validation
		"required":         "Requis",
		"invalid":          "Invalide",
		"invalid_email":    "Adresse e-mail invalide",
		"must_be_positive": "Doit être positif",
		"out_of_range":     "Hors limites",
		"not_allowed":      "Valeur non autorisée",
		"too_long":         "Trop long",
		"too_short":        "Trop court",

		// request errors
		"invalid_json":              "Corps de requête JSON invalide",
		"invalid_id":                "Identifiant invalide",
		"validation_failed":         "Certains champs sont invalides",
		"not_found":                 "Ressource introuvable",
		"unauthorized":              "Authentification requise",
		"forbidden":                 "Accès refusé",
		"invalid_credentials":       "E-mail ou mot de passe incorrect",
		"email_taken":               "Cette adresse e-mail est déjà utilisée",
		"internal_error":            "Une erreur interne est survenue",
		"invalid_status_transition": "Changement de statut impossible depuis le statut actuel",
		"not_editable":              "Ce document ne peut plus être modifié",

		// administration
		"cannot_delete_system_profile": "Les profils système ne peuvent pas être supprimés",
		"profile_has_users":            "Ce profil est encore attribué à des utilisateurs",
		"name_already_exists":          "Ce nom existe déjà",

		// templates
		"template_not_found":      "Modèle introuvable",
		"unknown_token":           "Le modèle contient des variables inconnues",
		"default_conflict":        "Un autre modèle par défaut a été défini en même temps, réessayez",
		"invalid_document_type":   "Type de document invalide",
		"document_type_mismatch":  "Ce modèle ne correspond pas à ce type de document",
		"default_template_delete": "Impossible de supprimer le modèle par défaut",

		// generation
		"pdf_generation_failed":    "Impossible de générer le document",
		"report_generation_failed": "Impossible de générer le rapport",
		"ai_unavailable":           "Le service de génération IA n'est pas configuré",
		"invalid_report_type":      "Type de rapport invalide",
		"report_not_generated":     "Le rapport n'a pas encore été généré",
	},
	LangEN: {
		"required":         "Required",
		"invalid":          "Invalid",
		"invalid_email":    "Invalid email address",
		"must_be_positive": "Must be positive",
		"out_of_range":     "Out of range",
		"not_allowed":      "Value not allowed",
		"too_long":         "Too long",
		"too_short":        "Too short",

		"invalid_json":              "Invalid JSON request body",
		"invalid_id":                "Invalid identifier",
		"validation_failed":         "Some fields are invalid",
		"not_found":                 "Resource not found",
		"unauthorized":              "Authentication required",
		"forbidden":                 "Access denied",
		"invalid_credentials":       "Wrong email or password",
		"email_taken":               "This email address is already in use",
		"internal_error":            "An internal error occurred",
		"invalid_status_transition": "This status change is not allowed from the current status",
		"not_editable":              "This document can no longer be edited",

		"cannot_delete_system_profile": "System profiles cannot be deleted",
		"profile_has_users":            "This profile is still assigned to users",
		"name_already_exists":          "This name already exists",

		"template_not_found":      "Template not found",
		"unknown_token":           "The template contains unknown variables",
		"default_conflict":        "Another default template was set concurrently, please retry",
		"invalid_document_type":   "Invalid document type",
		"document_type_mismatch":  "This template is for another document type",
		"default_template_delete": "The default template cannot be deleted",

		"pdf_generation_failed":    "Could not generate the document",
		"report_generation_failed": "Could not generate the report",
		"ai_unavailable":           "AI generation is not configured",
		"invalid_report_type":      "Invalid report type",
		"report_not_generated":     "The report has not been generated yet",
	},
}

// T translates code into lang. Unknown languages use French; unknown codes
// are returned unchanged.
func T(lang, code string) string {
	if m, ok := messages[normalize(lang)]; ok {
		if msg, ok := m[code]; ok {
			return msg
		}
	}
	if msg, ok := messages[DefaultLang][code]; ok {
		return msg
	}
	return code
}

// Supported reports whether lang has a catalogue.
func Supported(lang string) bool {
	_, ok := messages[normalize(lang)]
	return ok
}

// DetectLanguage picks the first supported language of an Accept-Language
// header, defaulting to French.
func DetectLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if lang := normalize(tag); Supported(lang) {
			return lang
		}
	}
	return DefaultLang
}

func normalize(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	base, _, _ := strings.Cut(tag, "-")
	base, _, _ = strings.Cut(base, "_")
	return base
}

type ctxKey struct{}

// WithLang stores the request language.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKey{}, normalize(lang))
}

// LangFromContext returns the request language or DefaultLang.
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(ctxKey{}).(string); ok && Supported(lang) {
		return lang
	}
	return DefaultLang
}
