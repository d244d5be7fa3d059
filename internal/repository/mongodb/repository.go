package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/leitor/internal/domain/models"
	"github.com/mamadbah2/leitor/internal/repository"
)

const (
	productsCollection = "produtos"
	scansCollection    = "leituras"
	countersCollection = "counters"
)

// MongoDBRepository implements repository.Store for MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ repository.Store = (*MongoDBRepository)(nil)

// NewMongoDBRepository connects, pings and ensures the barcode indexes.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := &MongoDBRepository{client: client, db: client.Database(dbName)}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(productsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "codigo_barras", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create products index: %w", err)
	}

	_, err = r.db.Collection(scansCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "codigo_barras", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create scans index: %w", err)
	}
	return nil
}

// ListProducts returns products newest first.
func (r *MongoDBRepository) ListProducts(ctx context.Context) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "data_cadastro", Value: -1}})
	cursor, err := r.db.Collection(productsCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

// CreateProduct inserts a product; duplicates yield
// repository.ErrDuplicateBarcode. Known duplicates are rejected before an id
// is allocated; only a concurrent insert of the same barcode, caught by the
// unique index, leaves a gap in the ids.
func (r *MongoDBRepository) CreateProduct(ctx context.Context, req models.NewProduct) (models.Product, error) {
	req = req.Normalize()

	existing, err := r.db.Collection(productsCollection).CountDocuments(ctx, bson.M{"codigo_barras": req.Barcode}, options.Count().SetLimit(1))
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to check barcode: %w", err)
	}
	if existing > 0 {
		return models.Product{}, repository.ErrDuplicateBarcode
	}

	id, err := r.nextID(ctx, productsCollection)
	if err != nil {
		return models.Product{}, err
	}

	product := models.Product{
		ID:           id,
		Barcode:      req.Barcode,
		Description:  req.Description,
		RegisteredAt: models.NewTimestamp(models.Now()),
	}

	if _, err := r.db.Collection(productsCollection).InsertOne(ctx, product); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Product{}, repository.ErrDuplicateBarcode
		}
		return models.Product{}, fmt.Errorf("failed to insert product: %w", err)
	}
	return product, nil
}

// ListScans returns scan rows most recently read first.
func (r *MongoDBRepository) ListScans(ctx context.Context) ([]models.ScanEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "data_hora", Value: -1}})
	cursor, err := r.db.Collection(scansCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}

	scans := []models.ScanEvent{}
	if err := cursor.All(ctx, &scans); err != nil {
		return nil, fmt.Errorf("failed to decode scans: %w", err)
	}
	return scans, nil
}

// RecordScan increments the row of barcode or creates it with the catalog
// description.
func (r *MongoDBRepository) RecordScan(ctx context.Context, barcode string) (bool, error) {
	scans := r.db.Collection(scansCollection)
	now := models.NewTimestamp(models.Now())

	res, err := scans.UpdateOne(ctx,
		bson.M{"codigo_barras": barcode},
		bson.M{"$inc": bson.M{"quantidade": 1}, "$set": bson.M{"data_hora": now}})
	if err != nil {
		return false, fmt.Errorf("failed to update scan: %w", err)
	}
	if res.MatchedCount > 0 {
		return false, nil
	}

	description := models.UnidentifiedDescription
	var product models.Product
	err = r.db.Collection(productsCollection).FindOne(ctx, bson.M{"codigo_barras": barcode}).Decode(&product)
	switch {
	case err == nil:
		description = product.Description
	case !errors.Is(err, mongo.ErrNoDocuments):
		return false, fmt.Errorf("failed to lookup product: %w", err)
	}

	id, err := r.nextID(ctx, scansCollection)
	if err != nil {
		return false, err
	}

	_, err = scans.InsertOne(ctx, models.ScanEvent{
		ID:          id,
		Barcode:     barcode,
		Description: description,
		Quantity:    1,
		ReadAt:      now,
	})
	if mongo.IsDuplicateKeyError(err) {
		// lost a race with a concurrent first read
		return r.RecordScan(ctx, barcode)
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert scan: %w", err)
	}
	return true, nil
}

// Report sums quantities per description, largest first.
func (r *MongoDBRepository) Report(ctx context.Context) ([]models.ReportRow, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$descricao"},
			{Key: "quantidade", Value: bson.D{{Key: "$sum", Value: "$quantidade"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "quantidade", Value: -1}}}},
	}

	cursor, err := r.db.Collection(scansCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate report: %w", err)
	}

	var results []struct {
		Description string `bson:"_id"`
		Quantity    int    `bson:"quantidade"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}

	rows := make([]models.ReportRow, 0, len(results))
	for _, res := range results {
		rows = append(rows, models.ReportRow{Description: res.Description, Quantity: res.Quantity})
	}
	return rows, nil
}

func (r *MongoDBRepository) nextID(ctx context.Context, sequence string) (int, error) {
	var counter struct {
		Value int `bson:"value"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.db.Collection(countersCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": sequence}, bson.M{"$inc": bson.M{"value": 1}}, opts).
		Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", sequence, err)
	}
	return counter.Value, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
