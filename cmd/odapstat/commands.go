package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"odapstat/internal/infrastructure"
	"odapstat/internal/report"
	"odapstat/internal/services"
	"odapstat/internal/validation"
	"odapstat/pkg/contracts/domain"
)

func newGenerateCommand(service *services.ReportService, validator *validation.UploadValidator) *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Build the wrong-answer statistics workbook from an answer sheet",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "answer sheet workbook (.xlsx)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "destination for the statistics workbook",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "title",
				Usage: "report title (defaults to the configured title)",
			},
			&cli.IntFlag{
				Name:  "module1-total",
				Usage: "question count of Module1 (defaults to the configured total)",
			},
			&cli.IntFlag{
				Name:  "module2-total",
				Usage: "question count of Module2 (defaults to the configured total)",
			},
			&cli.BoolFlag{
				Name:  "csv",
				Usage: "also write the CSV rendition next to the workbook",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = infrastructure.EnsureTraceID(ctx)
			input := c.String("input")
			output := c.String("output")

			if err := validator.ValidateReportFile(ctx, input); err != nil {
				return err
			}

			generated, err := service.GenerateFromFile(ctx, input, services.GenerateRequest{
				Title:        c.String("title"),
				Module1Total: int(c.Int("module1-total")),
				Module2Total: int(c.Int("module2-total")),
				Format:       domain.ReportFormatExcel,
			})
			if err != nil {
				return err
			}

			if err := os.WriteFile(output, generated.Content, 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Printf("통계 저장 완료: %s (학생 %d명, 문항 %d행)\n",
				output, generated.Report.Students, len(generated.Report.Rows))

			if c.Bool("csv") {
				csvPath := strings.TrimSuffix(output, filepath.Ext(output)) + ".csv"
				if err := report.SaveCSV(csvPath, generated.Report); err != nil {
					return err
				}
				fmt.Println("CSV 저장 완료:", csvPath)
			}

			return nil
		},
	}
}

func newExampleCommand(service *services.ReportService) *cli.Command {
	return &cli.Command{
		Name:  "example",
		Usage: "Write the example answer sheet template",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "destination for the template (.csv extension switches to CSV)",
				Required: true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			output := c.String("output")

			format := domain.ReportFormatExcel
			if strings.EqualFold(filepath.Ext(output), ".csv") {
				format = domain.ReportFormatCSV
			}

			generated, err := service.ExampleTemplate(format)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, generated.Content, 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}

			fmt.Println("예시 양식 저장 완료:", output)
			return nil
		},
	}
}

func newRootCommand(subcommands ...*cli.Command) *cli.Command {
	return &cli.Command{
		Name:     "odapstat",
		Usage:    "문항별 오답률 통계를 생성하는 배치 도구",
		Commands: subcommands,
	}
}
