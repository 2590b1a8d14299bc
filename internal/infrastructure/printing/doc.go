// Package printing turns orders into invoice PDFs: an html/template
// document printed to PDF by headless Chrome through chromedp.
//
//	engine, _ := NewTemplateEngine(WithCurrency("XOF"))
//	html, _ := engine.RenderInvoice(ctx, invoice)
//	result, _ := renderer.Render(ctx, &RenderRequest{HTML: html, PaperSize: PaperSizeA4})
package printing
