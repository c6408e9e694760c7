package domain

// ReportTemplate describes how a report type is written: its context,
// objective, style, tone, audience and ordered section structure.
type ReportTemplate struct {
	Context   string   `toml:"context"`
	Objective string   `toml:"objective"`
	Style     string   `toml:"style"`
	Tone      string   `toml:"tone"`
	Audience  string   `toml:"audience"`
	Structure []string `toml:"structure"`

	// Queries are the retrieval queries issued before synthesis.
	Queries []string `toml:"queries"`
}

//nolint:lll // Template prose is intentionally long.
var defaultTemplates = map[ReportType]ReportTemplate{
	ReportTypeExecutive: {
		Context:   "El informe recopila información de diversas fuentes y sintetiza los principales resultados, hallazgos y conclusiones de una investigación. Debe servir como resumen ejecutivo de alto nivel para tomadores de decisiones.",
		Objective: "Generar un informe ejecutivo de investigación con un resumen claro, hallazgos clave y conclusiones estratégicas, usando un lenguaje formal, directo y orientado a resultados.",
		Style:     "Redacción profesional, tipo resumen para alta dirección, con encabezados, viñetas y secciones bien definidas.",
		Tone:      "Formal, analítico y objetivo. Evitar opiniones personales o lenguaje emocional.",
		Audience:  "Directivos, gerentes o autoridades que necesitan una visión rápida y sintética de los resultados del análisis.",
		Structure: []string{"Resumen Ejecutivo", "Metodología de Investigación", "Hallazgos Principales", "Conclusiones y Recomendaciones", "Anexo de Referencias"},
		Queries:   []string{"hallazgos clave y conclusiones principales", "riesgos y recomendaciones estratégicas", "resultados, cifras y decisiones relevantes"},
	},
	ReportTypeTechnical: {
		Context:   "El informe debe documentar un análisis técnico o científico basado en datos, experimentos, o revisión documental especializada.",
		Objective: "Generar un informe técnico de investigación, incluyendo detalles metodológicos, interpretación de resultados y recomendaciones técnicas.",
		Style:     "Estilo técnico, estructurado y basado en evidencia. Debe incluir tablas, listas numeradas o figuras si es relevante.",
		Tone:      "Preciso, técnico y académico.",
		Audience:  "Profesionales o especialistas del área técnica o científica que requieren conocer los detalles del proceso y los resultados del análisis.",
		Structure: []string{"Resumen Técnico", "Objetivos del Estudio", "Metodología Detallada", "Resultados y Análisis", "Conclusiones Técnicas", "Referencias Bibliográficas"},
		Queries:   []string{"metodología y detalles técnicos", "resultados y análisis de datos", "problemas técnicos y recomendaciones"},
	},
	ReportTypeCompliance: {
		Context:   "Se requiere evaluar si un conjunto de documentos, procesos o actividades cumplen con normativas legales, reglamentarias o internas.",
		Objective: "Elaborar un informe de cumplimiento, identificando desviaciones, riesgos y recomendaciones correctivas.",
		Style:     "Estilo formal y normativo. Usa un lenguaje propio de auditoría, con claridad y precisión en los hallazgos.",
		Tone:      "Imparcial, objetivo y profesional.",
		Audience:  "Auditores, equipos legales, directores de cumplimiento o autoridades regulatorias.",
		Structure: []string{"Resumen de Cumplimiento", "Alcance y Criterios de Evaluación", "Hallazgos de Cumplimiento / No Cumplimiento", "Análisis de Riesgos", "Recomendaciones Correctivas", "Anexo de Evidencias"},
		Queries:   []string{"obligaciones normativas y cumplimiento", "incumplimientos, desviaciones y riesgos", "acciones correctivas y controles"},
	},
	ReportTypeFinancial: {
		Context:   "El informe se centra en analizar información económica, presupuestaria o contable para determinar desempeño financiero, tendencias o riesgos.",
		Objective: "Generar un informe financiero de análisis, basado en datos económicos o financieros, con hallazgos cuantitativos y conclusiones estratégicas.",
		Style:     "Estilo analítico y cuantitativo. Incluye cifras, indicadores clave, tablas o gráficos cuando corresponda.",
		Tone:      "Profesional, objetivo y analítico.",
		Audience:  "Analistas financieros, inversionistas, autoridades fiscales o gerentes de finanzas.",
		Structure: []string{"Resumen Financiero", "Objetivos del Análisis", "Datos y Fuentes", "Análisis de Resultados", "Conclusiones y Recomendaciones Estratégicas", "Anexo de Tablas o Indicadores"},
		Queries:   []string{"montos, presupuestos y cifras financieras", "riesgos financieros y tendencias", "conclusiones y recomendaciones financieras"},
	},
}

// DefaultReportTemplate returns the built-in template for a report type.
// Unknown types receive the executive template.
func DefaultReportTemplate(t ReportType) ReportTemplate {
	tpl, ok := defaultTemplates[t]
	if !ok {
		tpl = defaultTemplates[ReportTypeExecutive]
	}
	tpl.Structure = append([]string(nil), tpl.Structure...)
	tpl.Queries = append([]string(nil), tpl.Queries...)
	return tpl
}

// Merge fills empty fields of t from base.
func (t ReportTemplate) Merge(base ReportTemplate) ReportTemplate {
	if t.Context == "" {
		t.Context = base.Context
	}
	if t.Objective == "" {
		t.Objective = base.Objective
	}
	if t.Style == "" {
		t.Style = base.Style
	}
	if t.Tone == "" {
		t.Tone = base.Tone
	}
	if t.Audience == "" {
		t.Audience = base.Audience
	}
	if len(t.Structure) == 0 {
		t.Structure = base.Structure
	}
	if len(t.Queries) == 0 {
		t.Queries = base.Queries
	}
	return t
}
