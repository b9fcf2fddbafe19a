package reconcile

import "fmt"

// Notification tipos, serialized as-is into API responses.
const (
	NotifyAutoLinked   = "vinculacion_automatica"
	NotifySuggestions  = "sugerencias_disponibles"
	NotifyManualReview = "revision_manual"
	NotifyNoNotes      = "sin_albaran"
)

// Notification is the single user-facing message derived from one
// reconciliation run.
type Notification struct {
	Tipo     string   `json:"tipo"`
	Mensaje  string   `json:"mensaje"`
	Acciones []string `json:"acciones_disponibles"`
}

// notify derives the notification from the categorization outcome. Zero
// candidates is not an error: many invoices legitimately arrive without
// a delivery note and are treated as direct invoices.
func (e *Engine) notify(res Result) Notification {
	return e.Notify(len(res.AutoLinks), len(res.Suggestions), res.RequiresReview)
}

// Notify builds the user-facing notification for a run outcome. It is also
// used to rebuild the notification of a previously persisted run.
func (e *Engine) Notify(autoLinks, suggestions int, requiresReview bool) Notification {
	switch {
	case autoLinks > 0:
		return Notification{
			Tipo: NotifyAutoLinked,
			Mensaje: fmt.Sprintf("Se %s %d albar%s automáticamente.",
				plural(autoLinks, "vinculó", "vincularon"),
				autoLinks,
				plural(autoLinks, "án", "anes")),
			Acciones: []string{"ver_enlaces", "deshacer_enlace"},
		}
	case suggestions > 0:
		return Notification{
			Tipo: NotifySuggestions,
			Mensaje: fmt.Sprintf("Hay %d albar%s candidato%s pendientes de confirmación.",
				suggestions,
				plural(suggestions, "án", "anes"),
				plural(suggestions, "", "s")),
			Acciones: []string{"confirmar_sugerencia", "rechazar_sugerencia", "buscar_manual"},
		}
	case requiresReview:
		return Notification{
			Tipo:     NotifyManualReview,
			Mensaje:  "Se encontraron albaranes del proveedor pero ninguno con confianza suficiente. Revisa manualmente.",
			Acciones: []string{"buscar_manual", "reprocesar"},
		}
	default:
		return Notification{
			Tipo:     NotifyNoNotes,
			Mensaje:  "No hay albaranes de este proveedor en el período. La factura se tratará como factura directa.",
			Acciones: []string{"marcar_factura_directa", "subir_albaran"},
		}
	}
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}
