package crmtools

import (
	"context"
	"strings"

	"github.com/tudescuento/mcp-server-go/mcp"
	"github.com/tudescuento/mcp-server-go/mcpservice"
	"github.com/tudescuento/mcp-server-go/sessions"
)

const CompanyInfoURI = "tudescuento://info/company"

const companyInfo = `TuDescuento - Plataforma de Descuentos y Beneficios

Tu Descuento es la plataforma líder en Colombia para descuentos y beneficios
exclusivos. Los clientes adquieren una membresía y acceden a descuentos en la
red de comercios aliados, agrupados por categorías.

Canal de atención: Contacto Directo Por Whatsapp.`

// Prompts returns the prompt catalog served next to the CRM tools.
func Prompts() *mcpservice.StaticPrompts {
	return mcpservice.NewStaticPrompts(mcpservice.StaticPrompt{
		Descriptor: mcp.Prompt{
			Name:        "customer_support_greeting",
			Description: "Saludo inicial para soporte al cliente",
			Arguments: []mcp.PromptArgument{
				{Name: "customer_name", Description: "Nombre del cliente"},
			},
		},
		Handler: func(_ context.Context, _ *sessions.Session, req *mcp.GetPromptRequestReceived) (*mcp.GetPromptResult, error) {
			text := "Saluda al cliente de manera amigable y profesional."
			if name := strings.TrimSpace(req.Arguments["customer_name"]); name != "" {
				text = "Saluda al cliente " + name + " de manera amigable y profesional."
			}
			return mcpservice.UserText("", text), nil
		},
	})
}

// Resources returns the fixed company resource catalog.
func Resources() *mcpservice.StaticResources {
	return mcpservice.NewStaticResources(mcpservice.TextResource(
		CompanyInfoURI,
		"Información de TuDescuento",
		"Información general sobre la empresa TuDescuento",
		"text/plain",
		companyInfo,
	))
}
