package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/the-flip/core/internal/app"
	"github.com/the-flip/core/internal/config"
	"github.com/the-flip/core/internal/database"
	"github.com/the-flip/core/internal/models"
	"github.com/the-flip/core/internal/pkg/logging"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "flip",
		Short:         "The Flip — pinball museum operations backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "path to YAML config file")

	root.AddCommand(serveCmd(), migrateCmd(), createMaintainerCmd(), statusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.AppConfig, error) {
	return config.Load(configPath)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.IsDev())
			if err != nil {
				logger, _ = zap.NewProduction()
			}
			defer logger.Sync()

			application, err := app.New(logger, cfg)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}

			srv := &http.Server{
				Addr:    application.Addr(),
				Handler: application.Router(),
			}

			go func() {
				logger.Info("server starting", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal("server error", zap.Error(err))
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			logger.Info("shutting down server...")
			application.Shutdown()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("forced shutdown: %w", err)
			}
			logger.Info("server exited")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database auto-migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.Connect(cfg, false)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			fmt.Println("migration complete")
			return nil
		},
	}
}

func createMaintainerCmd() *cobra.Command {
	var (
		username, password, name, mail string
		isAdmin, sharedTerminal        bool
	)
	cmd := &cobra.Command{
		Use:   "create-maintainer",
		Short: "Create a maintainer account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username = strings.TrimSpace(username)
			if len(username) < 3 {
				return errors.New("--username must be at least 3 characters")
			}
			if len(password) < 6 {
				return errors.New("--password must be at least 6 characters")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.Connect(cfg, true)
			if err != nil {
				return err
			}

			var count int64
			db.Model(&models.MaintainerModel{}).Where("username = ?", username).Count(&count)
			if count > 0 {
				return fmt.Errorf("username %q is already taken", username)
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			m := models.MaintainerModel{
				Username:       username,
				Password:       string(hash),
				Name:           name,
				Mail:           mail,
				IsAdmin:        isAdmin,
				SharedTerminal: sharedTerminal,
			}
			if m.Name == "" {
				m.Name = username
			}
			if err := db.Create(&m).Error; err != nil {
				return err
			}
			fmt.Printf("created maintainer %s (%s)\n", m.Username, m.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login username (required)")
	cmd.Flags().StringVar(&password, "password", "", "login password (required)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&mail, "mail", "", "contact email")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "grant admin rights")
	cmd.Flags().BoolVar(&sharedTerminal, "shared-terminal", false, "mark as a shared workshop terminal account")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
	return cmd
}

func statusCmd() *cobra.Command {
	var zone string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the fleet status table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.Connect(cfg, false)
			if err != nil {
				return err
			}

			q := db.Model(&models.MachineInstanceModel{}).Preload("Model").Order("zone, asset_tag")
			if zone != "" {
				q = q.Where("zone = ?", zone)
			}
			var instances []models.MachineInstanceModel
			if err := q.Find(&instances).Error; err != nil {
				return err
			}

			openByInstance := map[string]int64{}
			type row struct {
				InstanceID string
				Count      int64
			}
			var rows []row
			db.Model(&models.ProblemReportModel{}).
				Select("instance_id, COUNT(*) AS count").
				Where("status IN ?", []models.ReportStatus{models.ReportOpen, models.ReportAcknowledged}).
				Group("instance_id").
				Scan(&rows)
			for _, r := range rows {
				openByInstance[r.InstanceID] = r.Count
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Asset Tag", "Machine", "Zone", "Status", "On Floor", "Open Reports"})
			for _, inst := range instances {
				name := ""
				if inst.Model != nil {
					name = inst.Model.Name
				}
				t.AppendRow(table.Row{
					inst.AssetTag,
					name,
					inst.Zone,
					inst.Status,
					inst.OnFloor,
					openByInstance[inst.ID],
				})
			}
			t.SetStyle(table.StyleLight)
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&zone, "zone", "", "filter by museum zone")
	return cmd
}
