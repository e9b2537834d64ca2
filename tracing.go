package database

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/golobby/database"

func defaultTracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(instrumentationName)
}

func (d *Driver) startSpan(ctx context.Context, verb, sql string) (context.Context, trace.Span) {
	ctx, span := d.tracer.Start(ctx, "database."+verb)
	span.SetAttributes(attribute.String("db.system", d.dialect.Name))
	span.SetAttributes(attribute.String("db.statement", sql))
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
