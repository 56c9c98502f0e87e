package classify

// The closed category set. Classification can only ever produce one of
// these labels; "uncategorized" is represented by DefaultCategory.
const (
	CategoryGeneral    = "general"
	CategoryEconomy    = "economy"
	CategorySociety    = "society"
	CategoryTechnology = "technology"
	CategoryCulture    = "culture"
	CategorySports     = "sports"
	CategoryHealth     = "health"
)

// DefaultCategory is the designated fallback label, never null/empty.
const DefaultCategory = CategoryGeneral

var categories = []string{
	CategoryGeneral,
	CategoryEconomy,
	CategorySociety,
	CategoryTechnology,
	CategoryCulture,
	CategorySports,
	CategoryHealth,
}

// Categories returns the allowed labels in a fresh slice.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// IsValid reports membership in the closed category set.
func IsValid(category string) bool {
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}

// NonGeographic lists categories whose content is admitted without
// geographic checks in strict mode.
var NonGeographic = map[string]bool{
	CategorySports:  true,
	CategoryCulture: true,
}

// categoryKeywords drives the rule strategy: occurrence counts of these
// terms (Spanish and English, matched diacritic-insensitively) score
// each category.
var categoryKeywords = map[string][]string{
	CategoryEconomy: {
		"economia", "economy", "inflacion", "inflation", "precio", "precios",
		"moneda", "currency", "peso", "dolar", "dollar", "remesas",
		"mipymes", "banco", "bank", "salario", "tarifa", "mercado",
		"comercio", "exportacion", "importacion", "combustible", "escasez",
	},
	CategorySociety: {
		"sociedad", "protesta", "protestas", "protest", "migracion",
		"migration", "balseros", "exilio", "derechos", "rights", "preso",
		"presos", "detenido", "arrestado", "comunidad", "vivienda",
		"apagon", "apagones", "blackout", "escuela", "educacion",
	},
	CategoryTechnology: {
		"tecnologia", "technology", "internet", "etecsa", "datos", "movil",
		"telefonia", "apps", "software", "digital", "inteligencia artificial",
		"ai", "startup", "redes sociales", "conectividad", "satelite",
	},
	CategoryCulture: {
		"cultura", "culture", "musica", "music", "cine", "film", "pelicula",
		"artista", "concierto", "festival", "libro", "novela", "teatro",
		"reggaeton", "salsa", "exposicion", "museo",
	},
	CategorySports: {
		"deporte", "deportes", "sports", "beisbol", "baseball", "boxeo",
		"boxing", "futbol", "soccer", "olimpico", "olympics", "atleta",
		"pelotero", "serie nacional", "mlb", "medalla",
	},
	CategoryHealth: {
		"salud", "health", "hospital", "medicina", "medicamentos", "vacuna",
		"vaccine", "epidemia", "dengue", "oropouche", "medico", "medicos",
		"enfermedad", "clinica", "farmacia",
	},
}

// categoryDescriptions feed the description-similarity strategy: a short
// fixed prose profile per category compared against the input by cosine
// similarity after stop-word removal.
var categoryDescriptions = map[string]string{
	CategoryGeneral: "noticias generales actualidad informacion eventos " +
		"sucesos anuncios gobierno isla poblacion",
	CategoryEconomy: "economia finanzas precios inflacion moneda peso dolar " +
		"remesas negocios mercado banco salarios comercio tiendas escasez " +
		"combustible tarifas mipymes emprendedores",
	CategorySociety: "sociedad comunidad protestas migracion exilio derechos " +
		"humanos presos politicos vivienda apagones servicios educacion " +
		"escuelas familias barrios",
	CategoryTechnology: "tecnologia internet conectividad datos moviles etecsa " +
		"aplicaciones software digital innovacion inteligencia artificial " +
		"redes sociales plataformas",
	CategoryCulture: "cultura arte musica cine peliculas artistas conciertos " +
		"festivales libros teatro museos exposiciones tradiciones",
	CategorySports: "deportes beisbol boxeo futbol atletas peloteros " +
		"competencias torneos medallas series juegos olimpicos",
	CategoryHealth: "salud hospitales medicina medicamentos vacunas epidemias " +
		"enfermedades medicos clinicas farmacias pacientes tratamientos",
}
