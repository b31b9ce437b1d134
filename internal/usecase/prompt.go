package usecase

import "strings"

// Placeholders substituted into prompt templates.
const (
	schemaPlaceholder = "{schema}"
	textPlaceholder   = "{text}"
)

const defaultFullTemplate = `Analyse le texte suivant et extrait les informations du produit. Retourne UNIQUEMENT un objet JSON valide, sans aucun texte avant ou après. N'invente aucune information absente du texte et réponds en français. Le JSON doit avoir cette structure exacte, en laissant les champs vides si l'information n'est pas trouvée:
{schema}

Texte à analyser:
{text}`

const defaultReducedTemplate = `Extrait uniquement le nom, la marque et la description du produit décrit dans le texte suivant. Retourne UNIQUEMENT un objet JSON valide avec cette structure, en laissant vide ce qui n'est pas trouvé:
{schema}

Texte à analyser:
{text}`

const fullSchema = `{
    "product_name": "",
    "brand": "",
    "model_number": "",
    "category": "",
    "technical_specs": {
        "volume": "",
        "classe_energetique": "",
        "capacite": "",
        "puissance": "",
        "tension": "",
        "frequence": ""
    },
    "dimensions": {
        "longueur": "",
        "largeur": "",
        "hauteur": "",
        "profondeur": ""
    },
    "weight": "",
    "power_consumption": "",
    "features": [],
    "warranty": "",
    "price_range": "",
    "description": "",
    "color": "",
    "material": "",
    "certifications": []
}`

const reducedSchema = `{
    "product_name": "",
    "brand": "",
    "description": ""
}`

// PromptTemplates holds the full and reduced-schema prompt texts. Both may
// use the {schema} and {text} placeholders.
type PromptTemplates struct {
	Full    string
	Reduced string
}

// DefaultPromptTemplates returns the built-in French prompts
func DefaultPromptTemplates() PromptTemplates {
	return PromptTemplates{Full: defaultFullTemplate, Reduced: defaultReducedTemplate}
}

// withDefaults fills blank templates from the built-in ones
func (p PromptTemplates) withDefaults() PromptTemplates {
	d := DefaultPromptTemplates()
	if strings.TrimSpace(p.Full) == "" {
		p.Full = d.Full
	}
	if strings.TrimSpace(p.Reduced) == "" {
		p.Reduced = d.Reduced
	}
	return p
}

func (p PromptTemplates) full(text string) string {
	return renderPrompt(p.Full, fullSchema, text)
}

func (p PromptTemplates) reduced(text string) string {
	return renderPrompt(p.Reduced, reducedSchema, text)
}

// renderPrompt substitutes placeholders. A template without {text} gets the
// text appended.
func renderPrompt(template, schema, text string) string {
	if !strings.Contains(template, textPlaceholder) {
		template += "\n\n" + textPlaceholder
	}
	return strings.NewReplacer(schemaPlaceholder, schema, textPlaceholder, text).Replace(template)
}
