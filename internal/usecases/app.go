package usecases

import (
	"github.com/architeacher/checkpoint/internal/ports"
	"github.com/architeacher/checkpoint/internal/usecases/commands"
	"github.com/architeacher/checkpoint/internal/usecases/queries"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/architeacher/checkpoint/pkg/metrics"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	Commands struct {
		CheckinComputer          commands.CheckinComputerCommandHandler
		RegisterFrequentComputer commands.RegisterFrequentComputerCommandHandler
		CheckinFrequentComputer  commands.CheckinFrequentComputerCommandHandler
		CheckinMedicalDevice     commands.CheckinMedicalDeviceCommandHandler
		CheckoutDevice           commands.CheckoutDeviceCommandHandler
	}

	Queries struct {
		GetComputers         queries.GetComputersQueryHandler
		GetFrequentComputers queries.GetFrequentComputersQueryHandler
		GetMedicalDevices    queries.GetMedicalDevicesQueryHandler
		GetEnteredDevices    queries.GetEnteredDevicesQueryHandler
		GetDevice            queries.GetDeviceQueryHandler
		FetchLiveness        queries.FetchLivenessQueryHandler
		FetchReadiness       queries.FetchReadinessQueryHandler
		FetchHealthReport    queries.FetchHealthReportQueryHandler
	}

	// Services groups the domain services the application drives.
	Services struct {
		Computers      ports.ComputerService
		MedicalDevices ports.MedicalDeviceService
		Devices        ports.DeviceService
		Health         ports.HealthChecker
	}

	Application struct {
		Commands Commands
		Queries  Queries
	}
)

func NewApplication(
	svc Services,
	log logger.Logger,
	tracerProvider otelTrace.TracerProvider,
	metricsClient metrics.Client,
) *Application {
	return &Application{
		Commands: Commands{
			CheckinComputer:          commands.NewCheckinComputerCommandHandler(svc.Computers, log, metricsClient, tracerProvider),
			RegisterFrequentComputer: commands.NewRegisterFrequentComputerCommandHandler(svc.Computers, log, metricsClient, tracerProvider),
			CheckinFrequentComputer:  commands.NewCheckinFrequentComputerCommandHandler(svc.Computers, log, metricsClient, tracerProvider),
			CheckinMedicalDevice:     commands.NewCheckinMedicalDeviceCommandHandler(svc.MedicalDevices, log, metricsClient, tracerProvider),
			CheckoutDevice:           commands.NewCheckoutDeviceCommandHandler(svc.Devices, log, metricsClient, tracerProvider),
		},
		Queries: Queries{
			GetComputers:         queries.NewGetComputersQueryHandler(svc.Computers, log, metricsClient, tracerProvider),
			GetFrequentComputers: queries.NewGetFrequentComputersQueryHandler(svc.Computers, log, metricsClient, tracerProvider),
			GetMedicalDevices:    queries.NewGetMedicalDevicesQueryHandler(svc.MedicalDevices, log, metricsClient, tracerProvider),
			GetEnteredDevices:    queries.NewGetEnteredDevicesQueryHandler(svc.Devices, log, metricsClient, tracerProvider),
			GetDevice:            queries.NewGetDeviceQueryHandler(svc.Devices, log, metricsClient, tracerProvider),
			FetchLiveness:        queries.NewFetchLivenessQueryHandler(svc.Health, log, metricsClient, tracerProvider),
			FetchReadiness:       queries.NewFetchReadinessQueryHandler(svc.Health, log, metricsClient, tracerProvider),
			FetchHealthReport:    queries.NewFetchHealthReportQueryHandler(svc.Health, log, metricsClient, tracerProvider),
		},
	}
}
