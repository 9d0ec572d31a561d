// Package crmtools exposes the TuDescuento CRM as MCP tools, plus the
// prompt and resource catalogs served alongside them.
package crmtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tudescuento/mcp-server-go/internal/crm"
	"github.com/tudescuento/mcp-server-go/mcpservice"
	"github.com/tudescuento/mcp-server-go/sessions"
)

// LeadOriginMarker must appear in every lead origin.
const LeadOriginMarker = "Contacto Directo Por Whatsapp"

// API is the subset of *crm.Client the tools call.
type API interface {
	Categories(ctx context.Context) ([]crm.Category, error)
	PublicMemberships(ctx context.Context) (*crm.PublicMembershipsResponse, error)
	MembershipDiscounts(ctx context.Context, membershipID int) (*crm.MembershipDiscountsResponse, error)
	AlliedCommerce(ctx context.Context, id int) (*crm.AlliedCommerce, error)
	AlliedCommercesByCategory(ctx context.Context, categoryID int) (*crm.CategoryWithAlliedCommerces, error)
	CustomerByIdentification(ctx context.Context, numeroIdentificacion string) (json.RawMessage, error)
	CreateLead(ctx context.Context, req crm.CreateLeadRequest) (*crm.CreateLeadResponse, error)
	SupportLogs(ctx context.Context, q crm.SupportLogsQuery) (*crm.Page[crm.SupportLog], error)
	CreateSupportLog(ctx context.Context, req crm.CreateSupportLogRequest) (*crm.CreateSupportLogResponse, error)
}

var _ API = (*crm.Client)(nil)

// Tools returns every CRM tool in listing order.
func Tools(api API) []mcpservice.StaticTool {
	return []mcpservice.StaticTool{
		categoriesTool(api),
		publicMembershipsTool(api),
		membershipDiscountsTool(api),
		alliedCommerceTool(api),
		alliedCommercesByCategoryTool(api),
		customerByIdentificationTool(api),
		createLeadTool(api),
		supportLogsTool(api),
		createSupportLogTool(api),
	}
}

type toolFunc[A any] func(ctx context.Context, sess *sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[A]) error

// fail renders a tool-level failure. CRM errors never escape as protocol
// errors: the agent is expected to read the message and react.
func fail(w mcpservice.ToolResponseWriter, text string) error {
	return w.Fail(text)
}

func crmFailure(w mcpservice.ToolResponseWriter, err error, fallback string) error {
	msg := crm.Message(err)
	if strings.TrimSpace(msg) == "" {
		msg = fallback
	}
	return fail(w, msg)
}

type noArgs struct{}

func categoriesTool(api API) mcpservice.StaticTool {
	var fn toolFunc[noArgs] = func(ctx context.Context, _ *sessions.Session, w mcpservice.ToolResponseWriter, _ *mcpservice.ToolRequest[noArgs]) error {
		cats, err := api.Categories(ctx)
		if err != nil {
			return crmFailure(w, err, "No se pudieron obtener las categorías")
		}
		return w.AppendText(prettyJSON(cats))
	}
	return mcpservice.NewTool("get_categories", fn,
		mcpservice.WithToolDescription("Obtiene todas las categorías de descuentos disponibles en Tu Descuento Colombia"))
}

func publicMembershipsTool(api API) mcpservice.StaticTool {
	var fn toolFunc[noArgs] = func(ctx context.Context, _ *sessions.Session, w mcpservice.ToolResponseWriter, _ *mcpservice.ToolRequest[noArgs]) error {
		res, err := api.PublicMemberships(ctx)
		if err != nil {
			return crmFailure(w, err, "No se pudieron obtener las membresías públicas")
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Se encontraron %d membresía(s) disponible(s) para venta:\n\n", len(res.Memberships))
		for i, m := range res.Memberships {
			fmt.Fprintf(&b, "%d. %s (ID: %d)\n", i+1, m.Nombre, m.ID)
			fmt.Fprintf(&b, "   - Precio: $%s\n", formatCOP(m.PrecioMembresia))
			fmt.Fprintf(&b, "   - Duración: %d meses\n", m.MesesDuracion)
			fmt.Fprintf(&b, "   - Beneficiarios: %d persona(s)\n", m.NumeroBeneficiarios)
			fmt.Fprintf(&b, "   - Descripción: %s\n", m.Descripcion)
			fmt.Fprintf(&b, "   - Color: %s\n", m.Color)
			if len(m.Categories) > 0 {
				b.WriteString("   - Categorías incluidas:\n")
				for _, c := range m.Categories {
					fmt.Fprintf(&b, "     • %s: %s\n", c.Name, c.Descripcion)
				}
			}
			b.WriteString("\n")
		}
		b.WriteString(jsonTrailer)
		b.WriteString(prettyJSON(res))
		return w.AppendText(b.String())
	}
	return mcpservice.NewTool("get_public_memberships", fn,
		mcpservice.WithToolDescription("Obtiene las membresías públicas disponibles para la venta en Tu Descuento Colombia, con precio, duración, número de beneficiarios y categorías incluidas."))
}

type membershipArgs struct {
	MembershipID int `json:"membership_id" jsonschema:"description=ID de la membresía de la cual se desean obtener los descuentos"`
}

func membershipDiscountsTool(api API) mcpservice.StaticTool {
	var fn toolFunc[membershipArgs] = func(ctx context.Context, _ *sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[membershipArgs]) error {
		id := r.Args().MembershipID
		if id <= 0 {
			return fail(w, "Error: El parámetro membership_id es requerido y debe ser un número")
		}
		res, err := api.MembershipDiscounts(ctx, id)
		if err != nil {
			return crmFailure(w, err, fmt.Sprintf("No se pudieron obtener los descuentos de la membresía %d", id))
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Se encontraron %d descuento(s) para la membresía %d:\n\n", len(res.Discounts), id)
		for i, d := range res.Discounts {
			fmt.Fprintf(&b, "%d. %s (ID: %d)\n", i+1, d.Nombre, d.ID)
			fmt.Fprintf(&b, "   - Comercio Aliado: %s\n", d.AlliedCommerce.RazonSocial)
			fmt.Fprintf(&b, "   - Teléfono comercio: %s\n", d.AlliedCommerce.Telefono)
			fmt.Fprintf(&b, "   - Descripción comercio: %s\n", d.AlliedCommerce.Descripcion)
			fmt.Fprintf(&b, "   - Tipo de beneficio: %s\n", d.TipoBeneficio)
			switch {
			case d.TipoBeneficio == crm.BenefitPercentage && d.Porcentaje != nil:
				fmt.Fprintf(&b, "   - Descuento: %s%% de rebaja\n", formatNumber(*d.Porcentaje))
			case d.TipoBeneficio == crm.BenefitFixedValue && d.ValorFijo != nil:
				fmt.Fprintf(&b, "   - Precio fijo: $%s\n", formatCOP(*d.ValorFijo))
			}
			fmt.Fprintf(&b, "   - Descripción del descuento: %s\n", d.Descripcion)
			fmt.Fprintf(&b, "   - Activo: %s\n", yesNo(d.Activo))
			if c := conditions(d.Condiciones); c != "" {
				fmt.Fprintf(&b, "   - Condiciones: %s\n", c)
			}
			b.WriteString("\n")
		}
		b.WriteString(jsonTrailer)
		b.WriteString(prettyJSON(res))
		return w.AppendText(b.String())
	}
	return mcpservice.NewTool("get_membership_discounts", fn,
		mcpservice.WithToolDescription("Obtiene los descuentos incluidos en una membresía específica, con el comercio aliado que ofrece cada uno. Requiere el ID de la membresía obtenido con get_public_memberships."))
}

type alliedCommerceArgs struct {
	AlliedCommerceID int `json:"allied_commerce_id" jsonschema:"description=ID del comercio aliado del cual se desea obtener información"`
}

func alliedCommerceTool(api API) mcpservice.StaticTool {
	var fn toolFunc[alliedCommerceArgs] = func(ctx context.Context, _ *sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[alliedCommerceArgs]) error {
		id := r.Args().AlliedCommerceID
		if id <= 0 {
			return fail(w, "Error: El parámetro allied_commerce_id es requerido y debe ser un número")
		}
		c, err := api.AlliedCommerce(ctx, id)
		if err != nil {
			return crmFailure(w, err, fmt.Sprintf("No se pudo obtener la información del comercio aliado %d", id))
		}

		var b strings.Builder
		b.WriteString("📍 Información del Comercio Aliado\n\n")
		fmt.Fprintf(&b, "🏢 Razón Social: %s\n", c.RazonSocial)
		fmt.Fprintf(&b, "🔖 Código: %s\n", c.Code)
		fmt.Fprintf(&b, "📞 Teléfono: %s\n", c.Telefono)
		fmt.Fprintf(&b, "📧 Email: %s\n", c.Email)
		fmt.Fprintf(&b, "📍 Dirección: %s\n\n", c.DireccionDomicilioPrincipal)
		fmt.Fprintf(&b, "📝 Descripción:\n%s\n\n", c.Descripcion)
		if len(c.Discounts) > 0 {
			fmt.Fprintf(&b, "🎁 Descuentos Ofrecidos (%d):\n\n", len(c.Discounts))
			for i, d := range c.Discounts {
				fmt.Fprintf(&b, "%d. %s\n", i+1, d.Nombre)
				fmt.Fprintf(&b, "   - Tipo: %s\n", d.TipoBeneficio)
				switch {
				case d.TipoBeneficio == crm.BenefitPercentage && d.Porcentaje != nil:
					fmt.Fprintf(&b, "   - Descuento: %s%%\n", formatNumber(*d.Porcentaje))
				case d.TipoBeneficio == crm.BenefitFixedValue && d.ValorFijo != nil:
					fmt.Fprintf(&b, "   - Precio fijo: $%s\n", formatCOP(*d.ValorFijo))
				}
				fmt.Fprintf(&b, "   - Descripción: %s\n", d.Descripcion)
				if d.Activo {
					b.WriteString("   - Estado: ✅ Activo\n\n")
				} else {
					b.WriteString("   - Estado: ❌ Inactivo\n\n")
				}
			}
		} else {
			b.WriteString("🎁 Este comercio no tiene descuentos registrados actualmente.\n\n")
		}

		// Internal identifiers and credentials are never echoed back.
		public := struct {
			Code                        string         `json:"code"`
			RazonSocial                 string         `json:"razon_social"`
			Telefono                    string         `json:"telefono"`
			Email                       string         `json:"email"`
			DireccionDomicilioPrincipal string         `json:"direccion_domicilio_principal"`
			Descripcion                 string         `json:"descripcion"`
			Discounts                   []crm.Discount `json:"discounts"`
		}{c.Code, c.RazonSocial, c.Telefono, c.Email, c.DireccionDomicilioPrincipal, c.Descripcion, c.Discounts}
		b.WriteString(jsonTrailer)
		b.WriteString(prettyJSON(public))
		return w.AppendText(b.String())
	}
	return mcpservice.NewTool("get_allied_commerce", fn,
		mcpservice.WithToolDescription("Obtiene información detallada de un comercio aliado que ofrece descuentos a los clientes de Tu Descuento Colombia: razón social, contacto, dirección, descripción y descuentos ofrecidos. Requiere el ID del comercio obtenido de consultas previas."))
}

type categoryArgs struct {
	CategoryID int `json:"category_id" jsonschema:"description=ID de la categoría para la cual se desean obtener los comercios aliados"`
}

func alliedCommercesByCategoryTool(api API) mcpservice.StaticTool {
	var fn toolFunc[categoryArgs] = func(ctx context.Context, _ *sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[categoryArgs]) error {
		id := r.Args().CategoryID
		if id <= 0 {
			return fail(w, "Error: El parámetro category_id es requerido y debe ser un número")
		}
		cat, err := api.AlliedCommercesByCategory(ctx, id)
		if err != nil {
			return crmFailure(w, err, fmt.Sprintf("No se pudieron obtener los comercios aliados de la categoría %d", id))
		}

		var b strings.Builder
		fmt.Fprintf(&b, "📁 Categoría: %s\n", cat.Name)
		fmt.Fprintf(&b, "📝 Descripción: %s\n\n", cat.Descripcion)
		fmt.Fprintf(&b, "🏢 Se encontraron %d comercio(s) aliado(s) en esta categoría:\n\n", len(cat.AlliedCommerces))
		for i, c := range cat.AlliedCommerces {
			fmt.Fprintf(&b, "%d. %s (ID: %d)\n", i+1, c.RazonSocial, c.ID)
			fmt.Fprintf(&b, "   📞 Teléfono: %s\n", c.Telefono)
			fmt.Fprintf(&b, "   📧 Email: %s\n", c.Email)
			fmt.Fprintf(&b, "   📍 Dirección: %s\n", c.DireccionDomicilioPrincipal)
			fmt.Fprintf(&b, "   📝 Descripción: %s\n", c.Descripcion)
			if len(c.Discounts) == 0 {
				b.WriteString("   🎁 Sin descuentos registrados\n\n")
				continue
			}
			fmt.Fprintf(&b, "   🎁 Descuentos (%d):\n", len(c.Discounts))
			for _, d := range c.Discounts {
				fmt.Fprintf(&b, "      • %s: ", d.Nombre)
				switch {
				case d.TipoBeneficio == crm.BenefitPercentage && d.Porcentaje != nil:
					fmt.Fprintf(&b, "%s%% de descuento", formatNumber(*d.Porcentaje))
				case d.TipoBeneficio == crm.BenefitFixedValue && d.ValorFijo != nil:
					fmt.Fprintf(&b, "Precio fijo $%s", formatCOP(*d.ValorFijo))
				}
				if d.Activo {
					b.WriteString(" ✅\n")
				} else {
					b.WriteString(" ❌\n")
				}
			}
			b.WriteString("\n")
		}
		b.WriteString(jsonTrailer)
		b.WriteString(prettyJSON(cat))
		return w.AppendText(b.String())
	}
	return mcpservice.NewTool("get_allied_commerces_by_category", fn,
		mcpservice.WithToolDescription("Obtiene todos los comercios aliados que ofrecen descuentos dentro de una categoría, con sus datos de contacto y descuentos. Requiere el ID de la categoría obtenido con get_categories."))
}

type identificationArgs struct {
	NumeroIdentificacion string `json:"numero_identificacion" jsonschema:"description=Número de documento de identificación del cliente sin puntos guiones ni espacios. Ejemplo: 1234567890"`
}

func customerByIdentificationTool(api API) mcpservice.StaticTool {
	var fn toolFunc[identificationArgs] = func(ctx context.Context, _ *sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[identificationArgs]) error {
		id := strings.TrimSpace(r.Args().NumeroIdentificacion)
		if id == "" {
			return fail(w, "Error: El parámetro numero_identificacion es requerido y debe ser un string")
		}
		raw, err := api.CustomerByIdentification(ctx, id)
		if err != nil {
			return crmFailure(w, err, "No se pudo obtener la información del cliente")
		}
		return w.AppendText(prettyJSON(raw))
	}
	// The misspelt name is what deployed agents already call.
	return mcpservice.NewTool("get_costumer_by_identification", fn,
		mcpservice.WithToolDescription("Busca y obtiene la información completa de un cliente registrado en la plataforma usando su número de identificación (cédula, NIT, etc.)"))
}

type createLeadArgs struct {
	Nombre          string `json:"nombre" jsonschema:"description=Nombre completo del prospecto"`
	Telefono        string `json:"telefono" jsonschema:"description=Número de teléfono o WhatsApp del prospecto"`
	Origen          string `json:"origen" jsonschema:"description=Debe seguir el formato: Contacto Directo Por Whatsapp (razón de interés)"`
	NumeroDocumento string `json:"numero_documento,omitempty" jsonschema:"description=Número de documento de identidad (solo si el usuario lo proporciona)"`
	Email           string `json:"email,omitempty" jsonschema:"description=Correo electrónico (solo si el usuario lo proporciona)"`
}

func createLeadTool(api API) mcpservice.StaticTool {
	var fn toolFunc[createLeadArgs] = func(ctx context.Context, _ *sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[createLeadArgs]) error {
		a := r.Args()
		req := crm.CreateLeadRequest{
			Nombre:          strings.TrimSpace(a.Nombre),
			Telefono:        strings.TrimSpace(a.Telefono),
			Origen:          strings.TrimSpace(a.Origen),
			NumeroDocumento: strings.TrimSpace(a.NumeroDocumento),
			Email:           strings.TrimSpace(a.Email),
		}
		for _, f := range []struct{ name, value string }{
			{"nombre", req.Nombre},
			{"telefono", req.Telefono},
			{"origen", req.Origen},
		} {
			if f.value == "" {
				return fail(w, fmt.Sprintf("❌ Error: El campo %q es requerido y debe ser un texto válido.", f.name))
			}
		}
		if !strings.Contains(req.Origen, LeadOriginMarker) {
			return fail(w, "❌ Error: El campo \"origen\" debe seguir el formato: \"Contacto Directo Por Whatsapp (razón de interés)\".\n\nEjemplo válido: \"Contacto Directo Por Whatsapp (Interés en membresía oro para descuentos)\"")
		}

		res, err := api.CreateLead(ctx, req)
		if err != nil {
			details := "No hay detalles adicionales"
			var apiErr *crm.APIError
			if errors.As(err, &apiErr) && apiErr.Details != nil {
				details = prettyJSON(apiErr.Details)
			}
			return fail(w, fmt.Sprintf("❌ Error al registrar el lead:\n%s\n\nDetalles: %s", crm.Message(err), details))
		}

		l := res.Lead
		var b strings.Builder
		fmt.Fprintf(&b, "✅ %s\n\n", res.Message)
		b.WriteString("📋 **Información del Lead Registrado:**\n")
		fmt.Fprintf(&b, "• ID: %d\n", l.ID)
		fmt.Fprintf(&b, "• Nombre: %s\n", l.Nombre)
		fmt.Fprintf(&b, "• Teléfono: %s\n", l.Telefono)
		if l.NumeroDocumento != "" {
			fmt.Fprintf(&b, "• Documento: %s\n", l.NumeroDocumento)
		}
		if l.Email != "" {
			fmt.Fprintf(&b, "• Email: %s\n", l.Email)
		}
		fmt.Fprintf(&b, "• Origen: %s\n", l.Origen)
		fmt.Fprintf(&b, "• Estado: %s\n", l.Estado)
		fmt.Fprintf(&b, "• Fecha de registro: %s\n\n", l.CreatedAt)
		b.WriteString("🎯 **Próximos Pasos:**\n")
		b.WriteString("El equipo de ventas de Tu Descuento Colombia se pondrá en contacto con el prospecto para completar el proceso de afiliación.")
		return w.AppendText(b.String())
	}
	return mcpservice.NewTool("create_lead", fn,
		mcpservice.WithToolDescription("Registra un lead (prospecto) en el CRM cuando un usuario muestra interés en adquirir membresías: pregunta cómo comprar, pide precios para contratar o solicita que lo contacten. El campo 'origen' DEBE tener el formato \"Contacto Directo Por Whatsapp (descripción del interés específico)\". Los campos numero_documento y email solo se incluyen si el usuario los proporciona."))
}

type supportLogsArgs struct {
	NumeroIdentificacion string `json:"numero_identificacion" jsonschema:"description=Número de documento de identificación del cliente sin puntos guiones ni espacios"`
	CreatedAtStart       string `json:"created_at_start,omitempty" jsonschema:"description=Fecha de inicio del rango en formato Y-m-d (ej: 2026-01-01)"`
	CreatedAtEnd         string `json:"created_at_end,omitempty" jsonschema:"description=Fecha de fin del rango en formato Y-m-d (ej: 2026-01-31)"`
	Page                 int    `json:"page,omitempty" jsonschema:"description=Número de página (por defecto 1)"`
}

func supportLogsTool(api API) mcpservice.StaticTool {
	var fn toolFunc[supportLogsArgs] = func(ctx context.Context, _ *sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[supportLogsArgs]) error {
		a := r.Args()
		if strings.TrimSpace(a.NumeroIdentificacion) == "" {
			return fail(w, "Error: El parámetro numero_identificacion es requerido y debe ser un string")
		}
		page := a.Page
		if page <= 0 {
			page = 1
		}
		res, err := api.SupportLogs(ctx, crm.SupportLogsQuery{
			NumeroIdentificacion: a.NumeroIdentificacion,
			CreatedAtStart:       a.CreatedAtStart,
			CreatedAtEnd:         a.CreatedAtEnd,
			Page:                 page,
		})
		if err != nil {
			return crmFailure(w, err, "No se pudieron obtener los logs de soporte para el número de identificación "+a.NumeroIdentificacion)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "📋 Historial de Soporte - Cliente: %s\n\n", a.NumeroIdentificacion)
		fmt.Fprintf(&b, "📊 Total de registros: %d | Página %d de %d\n", res.Total, res.CurrentPage, res.LastPage)
		if a.CreatedAtStart != "" || a.CreatedAtEnd != "" {
			b.WriteString("📅 Filtrado por fecha: ")
			if a.CreatedAtStart != "" {
				fmt.Fprintf(&b, "desde %s ", a.CreatedAtStart)
			}
			if a.CreatedAtEnd != "" {
				fmt.Fprintf(&b, "hasta %s", a.CreatedAtEnd)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if len(res.Data) == 0 {
			b.WriteString("❌ No se encontraron registros de soporte para este cliente.")
		}
		for _, l := range res.Data {
			fmt.Fprintf(&b, "📌 Caso #%d - %s\n", l.ID, formatDate(l.CreatedAt))
			fmt.Fprintf(&b, "👤 Cliente: %s\n", l.Nombre)
			fmt.Fprintf(&b, "📧 Email: %s | 📞 Teléfono: %s\n", l.Email, l.Telefono)
			fmt.Fprintf(&b, "👨‍💼 Atendido por: %s (%s)\n", l.User.Name, l.User.Email)
			fmt.Fprintf(&b, "🔄 Transferido: %s\n\n", yesNo(l.Handovered))
			fmt.Fprintf(&b, "💬 Necesidad:\n%s\n\n", l.Necesidad)
			fmt.Fprintf(&b, "✅ Solución:\n%s\n\n", l.Solucion)
			fmt.Fprintf(&b, "📝 Consideraciones:\n%s\n\n", l.Consideraciones)
			if l.UpdatedAt != l.CreatedAt {
				fmt.Fprintf(&b, "🔄 Última actualización: %s\n", formatDate(l.UpdatedAt))
			}
			b.WriteString("\n" + strings.Repeat("─", 80) + "\n\n")
		}
		b.WriteString(jsonTrailer)
		b.WriteString(prettyJSON(res))
		return w.AppendText(b.String())
	}
	return mcpservice.NewTool("get_support_logs", fn,
		mcpservice.WithToolDescription("Obtiene el historial de casos de soporte y ventas de un cliente a partir de su número de identificación: necesidad, solución, consideraciones de seguimiento y quién lo atendió. Permite filtrar por rango de fechas."))
}

type createSupportLogArgs struct {
	NumeroIdentificacion string `json:"numero_identificacion" jsonschema:"description=Número de documento de identificación del cliente sin puntos ni guiones"`
	Nombre               string `json:"nombre,omitempty" jsonschema:"description=Nombre completo del cliente"`
	Email                string `json:"email,omitempty" jsonschema:"description=Correo electrónico del cliente"`
	Telefono             string `json:"telefono,omitempty" jsonschema:"description=Teléfono del cliente"`
	Handovered           *bool  `json:"handovered" jsonschema:"description=Indica si el caso fue transferido a un agente humano"`
	Necesidad            string `json:"necesidad" jsonschema:"description=Descripción detallada de lo que el cliente solicitó o necesitó"`
	Solucion             string `json:"solucion" jsonschema:"description=Descripción de la solución brindada al cliente"`
	Consideraciones      string `json:"consideraciones" jsonschema:"description=Notas adicionales o recomendaciones de seguimiento"`
}

func createSupportLogTool(api API) mcpservice.StaticTool {
	var fn toolFunc[createSupportLogArgs] = func(ctx context.Context, _ *sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[createSupportLogArgs]) error {
		a := r.Args()
		if strings.TrimSpace(a.NumeroIdentificacion) == "" {
			return fail(w, "Error: El parámetro numero_identificacion es requerido y debe ser un string")
		}
		if a.Handovered == nil {
			return fail(w, "Error: El parámetro handovered es requerido y debe ser un booleano (true/false)")
		}
		for _, f := range []struct{ name, value string }{
			{"necesidad", a.Necesidad},
			{"solucion", a.Solucion},
			{"consideraciones", a.Consideraciones},
		} {
			if strings.TrimSpace(f.value) == "" {
				return fail(w, fmt.Sprintf("Error: El parámetro %s es requerido y debe ser un string", f.name))
			}
		}

		res, err := api.CreateSupportLog(ctx, crm.CreateSupportLogRequest{
			NumeroIdentificacion: a.NumeroIdentificacion,
			Nombre:               a.Nombre,
			Email:                a.Email,
			Telefono:             a.Telefono,
			Handovered:           *a.Handovered,
			Necesidad:            a.Necesidad,
			Solucion:             a.Solucion,
			Consideraciones:      a.Consideraciones,
		})
		if err != nil {
			return crmFailure(w, err, "No se pudo registrar el caso de soporte")
		}

		l := res.Data
		var b strings.Builder
		if res.Action == crm.ActionCreated {
			b.WriteString("✅ Caso de soporte CREADO exitosamente\n\n")
		} else {
			b.WriteString("🔄 Caso de soporte ACTUALIZADO exitosamente\n\n")
		}
		fmt.Fprintf(&b, "📌 ID del Caso: #%d\n", l.ID)
		fmt.Fprintf(&b, "👤 Cliente: %s\n", l.Nombre)
		fmt.Fprintf(&b, "🆔 Identificación: %s\n", l.NumeroIdentificacion)
		fmt.Fprintf(&b, "📧 Email: %s\n", l.Email)
		fmt.Fprintf(&b, "📞 Teléfono: %s\n", l.Telefono)
		fmt.Fprintf(&b, "👨‍💼 Atendido por: %s\n", l.User.Name)
		fmt.Fprintf(&b, "🔄 Transferido: %s\n\n", yesNo(l.Handovered))
		fmt.Fprintf(&b, "💬 Necesidad documentada:\n%s\n\n", l.Necesidad)
		fmt.Fprintf(&b, "✅ Solución brindada:\n%s\n\n", l.Solucion)
		fmt.Fprintf(&b, "📝 Consideraciones:\n%s\n\n", l.Consideraciones)
		fmt.Fprintf(&b, "📅 Fecha de registro: %s\n", formatDate(l.CreatedAt))
		if l.UpdatedAt != l.CreatedAt {
			fmt.Fprintf(&b, "🔄 Última actualización: %s\n", formatDate(l.UpdatedAt))
		}
		b.WriteString(jsonTrailer)
		b.WriteString(prettyJSON(res))
		return w.AppendText(b.String())
	}
	return mcpservice.NewTool("create_support_log", fn,
		mcpservice.WithToolDescription("Registra o actualiza un caso de soporte/ventas de Tu Descuento Colombia: necesidad expresada, solución brindada y consideraciones de seguimiento. Si ya existe un caso del día para el mismo número de identificación se actualiza; si no, se crea uno nuevo. Úsalo al finalizar cada interacción significativa con el cliente."))
}
